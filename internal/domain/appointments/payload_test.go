package appointments

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-web/internal/domain/availability"
)

func TestBuildPayload_WireShape(t *testing.T) {
	d := validDraft()
	d.SelectedServiceIDs = []string{"1", "vac-rabia"}
	d.RUT = "10.000.013-k"
	d.PetName = "  Luna "

	p, err := BuildPayload(d)
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, []any{float64(1), "vac-rabia"}, got["services"])
	assert.Equal(t, "2025-11-07", got["date"])
	assert.Equal(t, "09:00", got["time"])
	assert.Equal(t, "Luna", got["petName"])
	assert.Equal(t, "10.000.013-K", got["rut"])
	assert.Equal(t, 12.5, got["weight"])
	assert.Equal(t, float64(4), got["age"])
	assert.Equal(t, "tok", got["captchaToken"])
	assert.NotContains(t, got, "selectedSlot")
}

func TestBuildPayload_OptionalFieldsOmitted(t *testing.T) {
	d := validDraft()
	d.Weight = ""
	d.Age = " "

	p, err := BuildPayload(d)
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"weight"`)
	assert.NotContains(t, string(raw), `"age"`)
}

func TestBuildPayload_RecoversSlotKey(t *testing.T) {
	for _, slot := range []string{"2025-11-07::09:00", "2026-01-31::17:30", "2025-12-24::08:15"} {
		d := validDraft()
		d.SelectedSlot = slot

		p, err := BuildPayload(d)
		require.NoError(t, err)

		raw, err := json.Marshal(p)
		require.NoError(t, err)
		var back Payload
		require.NoError(t, json.Unmarshal(raw, &back))

		date, hour, ok := availability.SplitSlotKey(slot)
		require.True(t, ok)
		assert.Equal(t, date, back.Date)
		assert.Equal(t, hour, back.Time)
		assert.Equal(t, slot, back.SlotKey())
	}
}

func TestBuildPayload_RejectsMalformedSlot(t *testing.T) {
	d := validDraft()
	d.SelectedSlot = "2025-11-07"
	_, err := BuildPayload(d)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestBuildReview(t *testing.T) {
	d := validDraft()
	d.SelectedServiceIDs = []string{"2", "gone"}

	r := BuildReview(d, testCatalog(), time.UTC)

	assert.Equal(t, []ReviewService{
		{ID: "2", Title: "Vacuna antirrábica", Price: 15000},
		{ID: "gone", Title: "gone"},
	}, r.Services)
	assert.Equal(t, int64(15000), r.TotalPrice)
	assert.Equal(t, "Viernes 07/11", r.DayLabel)
	assert.Equal(t, "09:00", r.Hour)
	assert.True(t, strings.HasPrefix(r.RUT, "12.345.678"))
}
