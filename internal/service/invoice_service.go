package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/repository"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

type invoiceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
}

// enrollmentPriceReader resolves an enrollment together with its stored final price.
type enrollmentPriceReader interface {
	enrollmentLookup
	FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error)
}

// DefaultVATPercentage applies when an invoice request carries none.
var DefaultVATPercentage = decimal.NewFromInt(21)

var hundred = decimal.NewFromInt(100)

// CreateInvoiceRequest bills an enrollment. Number defaults to a generated
// FAC- code and the taxable base to the enrollment's final price.
type CreateInvoiceRequest struct {
	Number          string           `json:"number" validate:"omitempty,max=50"`
	TaxableBase     *decimal.Decimal `json:"taxable_base"`
	VATPercentage   *decimal.Decimal `json:"vat_percentage"`
	CustomerTaxData *string          `json:"customer_tax_data" validate:"omitempty,max=500"`
}

// InvoiceService issues invoices for enrollments.
type InvoiceService struct {
	repo        invoiceRepository
	enrollments enrollmentPriceReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewInvoiceService constructs InvoiceService.
func NewInvoiceService(repo invoiceRepository, enrollments enrollmentPriceReader, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// Get returns an invoice.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "invoice", id)
	}
	return invoice, nil
}

// ListByEnrollment returns the invoices of an enrollment.
func (s *InvoiceService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Invoice, error) {
	if err := requireEnrollment(ctx, s.enrollments, enrollmentID); err != nil {
		return nil, err
	}
	invoices, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	return invoices, nil
}

// Create issues an invoice. Total is base * (1 + vat/100) rounded to cents.
func (s *InvoiceService) Create(ctx context.Context, enrollmentID string, req CreateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	if err := validateAmount("taxable_base", req.TaxableBase); err != nil {
		return nil, err
	}
	if err := validateAmount("vat_percentage", req.VATPercentage); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.FindDetailByID(ctx, nil, enrollmentID)
	if err != nil {
		return nil, lookupError(err, "enrollment", enrollmentID)
	}

	base := enrollment.FinalPrice
	if req.TaxableBase != nil {
		base = *req.TaxableBase
	}
	vat := DefaultVATPercentage
	if req.VATPercentage != nil {
		vat = *req.VATPercentage
	}

	invoice := &models.Invoice{
		Number:          req.Number,
		EnrollmentID:    enrollmentID,
		IssuedAt:        time.Now().UTC(),
		TaxableBase:     base,
		VATPercentage:   vat,
		Total:           InvoiceTotal(base, vat),
		CustomerTaxData: req.CustomerTaxData,
	}
	if invoice.Number == "" {
		invoice.Number = GenerateInvoiceNumber()
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, persistError(err, "invoice", invoice.Number)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save invoice")
	}
	s.logger.Info("invoice issued", zap.String("invoice_id", invoice.ID), zap.String("number", invoice.Number), zap.String("total", invoice.Total.String()))
	return invoice, nil
}

// InvoiceTotal adds VAT to base and rounds half away from zero to two decimals.
func InvoiceTotal(base, vatPercentage decimal.Decimal) decimal.Decimal {
	return base.Add(base.Mul(vatPercentage).Div(hundred)).Round(2)
}
