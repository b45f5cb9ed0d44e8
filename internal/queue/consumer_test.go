package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
)

func TestAuditLine(t *testing.T) {
    pinned := uint64(88)
    ev := EmergencyEvent{
        EventID:         "7f1c",
        Kind:            KindEmergencyVerified,
        EmergencyID:     501,
        BuildingID:      3,
        EmergencyType:   "fire",
        ActorID:         7,
        PinnedMessageID: &pinned,
        OccurredAt:      time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
    }
    assert.Equal(t,
        "[2026-02-01T09:00:00Z] emergency.verified | event_id=7f1c | emergency_id=501 | building_id=3 | type=fire | actor_id=7 | pinned_message_id=88\n",
        auditLine(ev))

    ev.Kind = KindEmergencyReported
    ev.PinnedMessageID = nil
    assert.True(t, strings.HasSuffix(auditLine(ev), "pinned_message_id=-\n"))
}

func TestHandleMessageAppends(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "audit")
    c := NewAuditConsumer("amqp://unused", dir, zap.NewNop())

    for _, id := range []uint64{1, 2} {
        body, err := json.Marshal(EmergencyEvent{EventID: "e", Kind: KindEmergencyReported, EmergencyID: id, BuildingID: 3, EmergencyType: "medical"})
        require.NoError(t, err)
        require.NoError(t, c.handleMessage(body))
    }

    data, err := os.ReadFile(filepath.Join(dir, "emergency.log"))
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    assert.Contains(t, lines[0], "emergency_id=1")
    assert.Contains(t, lines[1], "emergency_id=2")
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
    c := NewAuditConsumer("amqp://unused", t.TempDir(), zap.NewNop())
    assert.Error(t, c.handleMessage([]byte("{not json")))
    assert.Error(t, c.handleMessage([]byte(`{"kind":""}`)))
}
