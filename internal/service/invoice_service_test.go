package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type memInvoices struct {
	items     map[string]models.Invoice
	duplicate bool
}

func (m *memInvoices) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	inv, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &inv, nil
}

func (m *memInvoices) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range m.items {
		if inv.EnrollmentID == enrollmentID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInvoices) Create(ctx context.Context, inv *models.Invoice) error {
	if m.duplicate {
		return repository.ErrDuplicateKey
	}
	inv.ID = "inv-" + inv.Number
	m.items[inv.ID] = *inv
	return nil
}

func TestInvoiceTotal(t *testing.T) {
	cases := []struct{ base, vat, want string }{
		{"400", "21", "484"},
		{"199.99", "21", "241.99"},
		{"100", "0", "100"},
		{"10.05", "10", "11.06"},
	}
	for _, tc := range cases {
		got := InvoiceTotal(dec(tc.base), dec(tc.vat))
		assert.True(t, got.Equal(dec(tc.want)), "%s at %s%%: got %s", tc.base, tc.vat, got)
	}
}

func TestInvoiceCreateDefaultsFromEnrollment(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.items["enr-1"] = models.Enrollment{ID: "enr-1", GrossPrice: dec("500"), DiscountApplied: dec("100")}
	invoices := &memInvoices{items: map[string]models.Invoice{}}
	svc := NewInvoiceService(invoices, enrollments, nil, nil)
	ctx := context.Background()

	invoice, err := svc.Create(ctx, "enr-1", CreateInvoiceRequest{})
	require.NoError(t, err)
	assert.Regexp(t, `^FAC-[0-9A-F]{8}$`, invoice.Number)
	assert.True(t, invoice.TaxableBase.Equal(dec("400")))
	assert.True(t, invoice.VATPercentage.Equal(dec("21")))
	assert.True(t, invoice.Total.Equal(dec("484")))

	listed, err := svc.ListByEnrollment(ctx, "enr-1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	got, err := svc.Get(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.Number, got.Number)
}

func TestInvoiceCreateErrors(t *testing.T) {
	enrollments := newFakeEnrollments()
	enrollments.items["enr-1"] = models.Enrollment{ID: "enr-1", GrossPrice: dec("100")}
	invoices := &memInvoices{items: map[string]models.Invoice{}}
	svc := NewInvoiceService(invoices, enrollments, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "missing", CreateInvoiceRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Create(ctx, "enr-1", CreateInvoiceRequest{VATPercentage: decPtr("-1")})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	invoices.duplicate = true
	_, err = svc.Create(ctx, "enr-1", CreateInvoiceRequest{Number: "FAC-TAKEN000"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateKey.Code))
}
