package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Handle string   `json:"handle" validate:"required,min=3,max=10,handle"`
	Email  string   `json:"email" validate:"required,email"`
	Clock  string   `json:"clock" validate:"required,clock"`
	Date   string   `json:"date" validate:"required,isodate,notpast"`
	Kind   string   `json:"kind" validate:"required,oneof=Workshop Social"`
	Price  *float64 `json:"price" validate:"required,gte=0"`
	Note   string   `json:"note" validate:"max=5"`
}

func floatPtr(v float64) *float64 { return &v }

func withNow(t *testing.T, fixed time.Time) {
	t.Helper()
	previous := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = previous })
}

func TestStruct_Valid(t *testing.T) {
	withNow(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local))

	err := Struct(sample{
		Handle: "bob_99",
		Email:  "bob@example.com",
		Clock:  "23:59",
		Date:   "2026-03-10",
		Kind:   "Social",
		Price:  floatPtr(0),
	}, nil)
	require.NoError(t, err)
}

func TestStruct_CollectsEveryField(t *testing.T) {
	withNow(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local))

	err := Struct(sample{
		Handle: "b!",
		Email:  "nope",
		Clock:  "24:00",
		Date:   "2026-03-09",
		Kind:   "Rave",
		Price:  floatPtr(-1),
		Note:   "too long",
	}, Messages{"handle.min": "Username must be between 3 and 50 characters"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	fields := FieldErrors(err)
	require.Len(t, fields, 7)
	assert.Equal(t, "Username must be between 3 and 50 characters", fields["handle"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be a time in HH:MM format", fields["clock"])
	assert.Equal(t, "cannot be in the past", fields["date"])
	assert.Equal(t, "must be one of: Workshop, Social", fields["kind"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "must be at most 5 characters", fields["note"])
}

func TestStruct_RequiredPointer(t *testing.T) {
	err := Struct(sample{Handle: "bob", Email: "b@example.com", Clock: "10:00", Date: "2999-01-01", Kind: "Social"}, Messages{"price": "Price must be a positive number"})
	fields := FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Price must be a positive number", fields["price"])
}

func TestStruct_MalformedDateReportsFormatOnly(t *testing.T) {
	err := Struct(sample{Handle: "bob", Email: "b@example.com", Clock: "10:00", Date: "03/10/2026", Kind: "Social", Price: floatPtr(1)}, nil)
	fields := FieldErrors(err)
	assert.Equal(t, "must be a date in YYYY-MM-DD format", fields["date"])
}

func TestErrors_AddKeepsFirst(t *testing.T) {
	var errs Errors
	require.NoError(t, errs.Err())

	errs.Add("email", "first")
	errs.Add("email", "second")
	require.Error(t, errs.Err())
	assert.Equal(t, "first", errs.Fields["email"])
	assert.Equal(t, "validation failed: email: first", errs.Error())
}
