package graphql

import (
	"context"

	gql "github.com/graphql-go/graphql"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/service"
)

// EnrollmentService is the enrollment surface the schema resolves against.
type EnrollmentService interface {
	Get(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, req service.CreateEnrollmentRequest) (*models.EnrollmentDetail, error)
	Update(ctx context.Context, id string, req service.UpdateEnrollmentRequest) (*models.EnrollmentDetail, error)
	Delete(ctx context.Context, id string) error
}

// OfferingService is the offering surface the schema resolves against.
type OfferingService interface {
	Get(ctx context.Context, id string) (*models.OfferingDetail, error)
	ListActive(ctx context.Context) ([]models.OfferingDetail, error)
}

var paymentStatusEnum = gql.NewEnum(gql.EnumConfig{
	Name: "PaymentStatus",
	Values: gql.EnumValueConfigMap{
		"PENDING":   &gql.EnumValueConfig{Value: models.PaymentStatusPending},
		"PAID":      &gql.EnumValueConfig{Value: models.PaymentStatusPaid},
		"CANCELLED": &gql.EnumValueConfig{Value: models.PaymentStatusCancelled},
	},
})

// Money amounts are strings so clients never round through floats.
var enrollmentType = gql.NewObject(gql.ObjectConfig{
	Name: "Enrollment",
	Fields: gql.Fields{
		"id":               &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"code":             &gql.Field{Type: gql.NewNonNull(gql.String)},
		"offeringId":       &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"offeringCode":     &gql.Field{Type: gql.String},
		"studentId":        &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"studentName":      &gql.Field{Type: gql.String},
		"enrolledAt":       &gql.Field{Type: gql.DateTime},
		"grossPrice":       &gql.Field{Type: gql.NewNonNull(gql.String)},
		"discountApplied":  &gql.Field{Type: gql.NewNonNull(gql.String)},
		"discountReason":   &gql.Field{Type: gql.String},
		"subsidyEntityId":  &gql.Field{Type: gql.ID},
		"subsidizedAmount": &gql.Field{Type: gql.NewNonNull(gql.String)},
		"finalPrice":       &gql.Field{Type: gql.NewNonNull(gql.String)},
		"paymentStatus":    &gql.Field{Type: gql.NewNonNull(paymentStatusEnum)},
	},
})

var paginationType = gql.NewObject(gql.ObjectConfig{
	Name: "Pagination",
	Fields: gql.Fields{
		"page":       &gql.Field{Type: gql.Int},
		"pageSize":   &gql.Field{Type: gql.Int},
		"totalCount": &gql.Field{Type: gql.Int},
	},
})

var enrollmentPageType = gql.NewObject(gql.ObjectConfig{
	Name: "EnrollmentPage",
	Fields: gql.Fields{
		"items":      &gql.Field{Type: gql.NewList(enrollmentType)},
		"pagination": &gql.Field{Type: paginationType},
	},
})

var offeringType = gql.NewObject(gql.ObjectConfig{
	Name: "Offering",
	Fields: gql.Fields{
		"id":          &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"code":        &gql.Field{Type: gql.NewNonNull(gql.String)},
		"courseId":    &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"courseName":  &gql.Field{Type: gql.String},
		"teacherId":   &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"teacherName": &gql.Field{Type: gql.String},
		"centerId":    &gql.Field{Type: gql.NewNonNull(gql.ID)},
		"centerName":  &gql.Field{Type: gql.String},
		"startDate":   &gql.Field{Type: gql.DateTime},
		"endDate":     &gql.Field{Type: gql.DateTime},
		"active":      &gql.Field{Type: gql.Boolean},
	},
})

var createEnrollmentInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "CreateEnrollmentInput",
	Fields: gql.InputObjectConfigFieldMap{
		"code":             &gql.InputObjectFieldConfig{Type: gql.String},
		"offeringId":       &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.ID)},
		"studentId":        &gql.InputObjectFieldConfig{Type: gql.NewNonNull(gql.ID)},
		"subsidyEntityId":  &gql.InputObjectFieldConfig{Type: gql.ID},
		"subsidizedAmount": &gql.InputObjectFieldConfig{Type: gql.String},
	},
})

var updateEnrollmentInput = gql.NewInputObject(gql.InputObjectConfig{
	Name: "UpdateEnrollmentInput",
	Fields: gql.InputObjectConfigFieldMap{
		"code":             &gql.InputObjectFieldConfig{Type: gql.String},
		"offeringId":       &gql.InputObjectFieldConfig{Type: gql.ID},
		"subsidyEntityId":  &gql.InputObjectFieldConfig{Type: gql.ID, Description: "empty string detaches the subsidy entity"},
		"subsidizedAmount": &gql.InputObjectFieldConfig{Type: gql.String},
		"paymentStatus":    &gql.InputObjectFieldConfig{Type: paymentStatusEnum},
	},
})

// NewSchema builds the enrollment schema.
func NewSchema(enrollments EnrollmentService, offerings OfferingService) (gql.Schema, error) {
	r := &resolver{enrollments: enrollments, offerings: offerings}

	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"enrollment": &gql.Field{
				Type:    enrollmentType,
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.enrollment,
			},
			"enrollments": &gql.Field{
				Type: enrollmentPageType,
				Args: gql.FieldConfigArgument{
					"page":          &gql.ArgumentConfig{Type: gql.Int, DefaultValue: 1},
					"pageSize":      &gql.ArgumentConfig{Type: gql.Int, DefaultValue: 20},
					"paymentStatus": &gql.ArgumentConfig{Type: paymentStatusEnum},
				},
				Resolve: r.enrollmentList,
			},
			"enrollmentsByStudent": &gql.Field{
				Type:    gql.NewList(enrollmentType),
				Args:    gql.FieldConfigArgument{"studentId": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.enrollmentsByStudent,
			},
			"offering": &gql.Field{
				Type:    offeringType,
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.offering,
			},
			"activeOfferings": &gql.Field{
				Type:    gql.NewList(offeringType),
				Resolve: r.activeOfferings,
			},
		},
	})

	mutation := gql.NewObject(gql.ObjectConfig{
		Name: "Mutation",
		Fields: gql.Fields{
			"createEnrollment": &gql.Field{
				Type:    enrollmentType,
				Args:    gql.FieldConfigArgument{"input": &gql.ArgumentConfig{Type: gql.NewNonNull(createEnrollmentInput)}},
				Resolve: r.createEnrollment,
			},
			"updateEnrollment": &gql.Field{
				Type: enrollmentType,
				Args: gql.FieldConfigArgument{
					"id":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
					"input": &gql.ArgumentConfig{Type: gql.NewNonNull(updateEnrollmentInput)},
				},
				Resolve: r.updateEnrollment,
			},
			"deleteEnrollment": &gql.Field{
				Type:    gql.Boolean,
				Args:    gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)}},
				Resolve: r.deleteEnrollment,
			},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{Query: query, Mutation: mutation})
}
