package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Angellovem/biocredits-calc/internal/domain"
)

func TestSerializeScore(t *testing.T) {
	computed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	score := domain.CreditScore{
		PlotID:         "PLT-1",
		ProjectID:      "PRJ-1",
		CertifierID:    "cert-1",
		CreditedArea:   2431.5,
		WeightedCredit: 3039.375,
		Days:           4,
		From:           domain.Date{Year: 2024, Month: 1, Day: 1},
		To:             domain.Date{Year: 2024, Month: 1, Day: 4},
		RunID:          "run-1",
		ComputedAt:     computed,
	}

	msg, err := serializeScore(score)
	require.NoError(t, err)

	assert.Equal(t, []byte("PLT-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"credited_area_m2":2431.5`)
	assert.Contains(t, string(msg.Value), `"from_day":"2024-01-01"`)
	assert.Contains(t, string(msg.Value), `"to_day":"2024-01-04"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(computed.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeUnion(t *testing.T) {
	du := domain.DailyUnion{
		PlotID:       "PLT-1",
		Day:          domain.Date{Year: 2024, Month: 3, Day: 15},
		Area:         1234.5,
		Observations: 2,
	}

	msg, err := serializeUnion("run-1", du)
	require.NoError(t, err)

	assert.Equal(t, []byte("PLT-1/2024-03-15"), msg.Key)
	assert.Contains(t, string(msg.Value), `"day":"2024-03-15"`)
	assert.Contains(t, string(msg.Value), `"area_m2":1234.5`)
	assert.Contains(t, string(msg.Value), `"observations":2`)

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
}
