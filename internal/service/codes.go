package service

import (
	"strings"

	"github.com/google/uuid"
)

const (
	enrollmentCodePrefix = "MAT-"
	offeringCodePrefix   = "CONV-"
	invoiceNumberPrefix  = "FAC-"
)

// GenerateEnrollmentCode returns MAT- followed by 8 upper-case hex characters.
func GenerateEnrollmentCode() string { return randomCode(enrollmentCodePrefix) }

// GenerateOfferingCode returns CONV- followed by 8 upper-case hex characters.
func GenerateOfferingCode() string { return randomCode(offeringCodePrefix) }

// GenerateInvoiceNumber returns FAC- followed by 8 upper-case hex characters.
func GenerateInvoiceNumber() string { return randomCode(invoiceNumberPrefix) }

func randomCode(prefix string) string {
	return prefix + strings.ToUpper(uuid.NewString()[:8])
}
