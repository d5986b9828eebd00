package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string   `json:"email" validate:"required,email"`
	Lat   float64  `json:"latitude" validate:"latitude"`
	PH    *float64 `json:"ph" validate:"required"`
	Days  []int    `json:"days" validate:"min=1"`
}

func TestStructValid(t *testing.T) {
	ph := 6.5
	err := Struct(sample{Email: "a@b.io", Lat: 19.9, PH: &ph, Days: []int{1}})
	require.NoError(t, err)
}

func TestStructCollectsFieldErrors(t *testing.T) {
	err := Struct(sample{Email: "nope", Lat: 120})
	require.Error(t, err)

	var verrs *Errors
	require.True(t, errors.As(err, &verrs))

	fields := map[string]string{}
	for _, f := range verrs.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "latitude", fields["latitude"])
	assert.Equal(t, "required", fields["ph"])
	assert.Equal(t, "min", fields["days"])
	assert.Contains(t, err.Error(), "ph is required")
}
