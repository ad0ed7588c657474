package vouchers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fakeEmitter struct {
	recorded []string
}

func (f *fakeEmitter) EmitVoucherRecorded(e *Event) {
	f.recorded = append(f.recorded, e.ID)
}

func validRecord() RecordInput {
	return RecordInput{
		VoucherID: "vch_1",
		VenueID:   "ven_1",
		MachineID: "m1",
		Amount:    d("25.00"),
		IssuedAt:  time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
	}
}

func TestRecordVoucher(t *testing.T) {
	emitter := &fakeEmitter{}
	svc := NewService(NewMemoryStore(), emitter)

	event, err := svc.Record(context.Background(), validRecord())
	require.NoError(t, err)

	assert.Equal(t, "vch_1", event.ID)
	assert.Equal(t, "2026-03-02", event.Date)
	assert.True(t, event.Amount.Equal(d("25.00")))
	assert.Equal(t, []string{"vch_1"}, emitter.recorded)
}

func TestRecordDuplicateIsIdempotent(t *testing.T) {
	emitter := &fakeEmitter{}
	svc := NewService(NewMemoryStore(), emitter)
	ctx := context.Background()

	first, err := svc.Record(ctx, validRecord())
	require.NoError(t, err)

	// Same voucher retried with a different amount: the original wins.
	retry := validRecord()
	retry.Amount = d("999.00")
	second, err := svc.Record(ctx, retry)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(d("25.00")))
	assert.Len(t, emitter.recorded, 1)

	sum, err := svc.store.SumByVenueDate(ctx, "ven_1", "2026-03-02")
	require.NoError(t, err)
	assert.True(t, sum.Equal(d("25.00")))
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	for _, amount := range []string{"0", "-5.00"} {
		in := validRecord()
		in.Amount = d(amount)

		_, err := svc.Record(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestRecordRejectsMissingFields(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)

	cases := map[string]func(*RecordInput){
		"missing venue":    func(in *RecordInput) { in.VenueID = "" },
		"missing machine":  func(in *RecordInput) { in.MachineID = "" },
		"missing issuedAt": func(in *RecordInput) { in.IssuedAt = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validRecord()
			mutate(&in)
			_, err := svc.Record(context.Background(), in)
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestRecordGeneratesIDWhenMissing(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	in := validRecord()
	in.VoucherID = ""

	event, err := svc.Record(context.Background(), in)
	require.NoError(t, err)
	assert.Regexp(t, `^vch_[a-f0-9]{24}$`, event.ID)
}

func TestRecordBucketsDateInUTC(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	in := validRecord()
	loc := time.FixedZone("PST", -8*3600)
	in.IssuedAt = time.Date(2026, 3, 2, 22, 0, 0, 0, loc)

	event, err := svc.Record(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", event.Date)
}

func TestSumByVenueDate(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	amounts := []string{"10.00", "20.50", "0.01"}
	for i, a := range amounts {
		in := validRecord()
		in.VoucherID = ""
		in.Amount = d(a)
		in.IssuedAt = in.IssuedAt.Add(time.Duration(i) * time.Minute)
		_, err := svc.Record(ctx, in)
		require.NoError(t, err)
	}

	sum, err := store.SumByVenueDate(ctx, "ven_1", "2026-03-02")
	require.NoError(t, err)
	assert.True(t, sum.Equal(d("30.51")), "got %s", sum)

	other, err := store.SumByVenueDate(ctx, "ven_2", "2026-03-02")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}
