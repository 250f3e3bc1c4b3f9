package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

var (
	// DisabilityThreshold is inclusive: 33.00 qualifies, 32.99 does not.
	DisabilityThreshold    = decimal.NewFromInt(33)
	DisabilityDiscountRate = decimal.RequireFromString("0.20")
)

type personalDataReader interface {
	FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.PersonalData, error)
}

// PricingResult holds the amounts derived for an enrollment. The final price is
// not part of it; storage derives it from these values.
type PricingResult struct {
	GrossPrice        decimal.Decimal
	DiscountApplied   decimal.Decimal
	DiscountReason    string
	SubsidizedAmount  decimal.Decimal
	PersonalDataFound bool
}

// Apply copies the computed amounts into e.
func (r PricingResult) Apply(e *models.Enrollment) {
	e.GrossPrice = r.GrossPrice
	e.DiscountApplied = r.DiscountApplied
	e.DiscountReason = r.DiscountReason
	e.SubsidizedAmount = r.SubsidizedAmount
}

// PricingEngine derives gross price, discount and subsidy for an enrollment.
type PricingEngine struct {
	personalData personalDataReader
	logger       *zap.Logger
}

// NewPricingEngine constructs the engine.
func NewPricingEngine(personalData personalDataReader, logger *zap.Logger) *PricingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingEngine{personalData: personalData, logger: logger}
}

// Compute prices enrollment against course. The gross price is the course base
// price unchanged. A student whose disability percentage is at least the
// threshold gets a 20% discount on the gross price. A student without a
// personal data record is priced with no discount. The subsidized amount is
// passed through from the enrollment, zero when unset.
func (e *PricingEngine) Compute(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment, course *models.Course) (PricingResult, error) {
	result := PricingResult{
		GrossPrice:       course.BasePrice,
		DiscountApplied:  decimal.Zero,
		DiscountReason:   models.DiscountReasonNone,
		SubsidizedAmount: enrollment.SubsidizedAmount,
	}

	data, err := e.personalData.FindByUserID(ctx, exec, enrollment.StudentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		e.logger.Debug("no personal data, pricing without discount", zap.String("student_id", enrollment.StudentID))
		return result, nil
	case err != nil:
		return PricingResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load personal data")
	}

	result.PersonalDataFound = true
	if data.DisabilityPercentage.Valid && data.DisabilityPercentage.Decimal.GreaterThanOrEqual(DisabilityThreshold) {
		result.DiscountApplied = result.GrossPrice.Mul(DisabilityDiscountRate)
		result.DiscountReason = models.DiscountReasonDisability
	}

	e.logger.Debug("pricing evaluated",
		zap.String("student_id", enrollment.StudentID),
		zap.String("course_id", course.ID),
		zap.String("gross", result.GrossPrice.String()),
		zap.String("discount", result.DiscountApplied.String()),
		zap.String("reason", result.DiscountReason),
	)
	return result, nil
}
