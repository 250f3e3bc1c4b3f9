package graphql

import (
	"fmt"

	gql "github.com/graphql-go/graphql"
	"github.com/shopspring/decimal"

	"github.com/academy-manager/academy-api/internal/models"
	"github.com/academy-manager/academy-api/internal/service"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

var (
	staffRoles  = []models.UserRole{models.RoleAdmin, models.RoleAdministrativeStaff}
	readerRoles = []models.UserRole{models.RoleAdmin, models.RoleAdministrativeStaff, models.RoleTeacher}
)

type resolver struct {
	enrollments EnrollmentService
	offerings   OfferingService
}

func (r *resolver) enrollment(p gql.ResolveParams) (interface{}, error) {
	claims, err := authenticated(p.Context)
	if err != nil {
		return nil, err
	}
	id := stringArg(p.Args, "id")
	detail, err := r.enrollments.Get(p.Context, id)
	if hasRole(claims, readerRoles...) {
		if err != nil {
			return nil, resolverError(err)
		}
		return enrollmentMap(detail), nil
	}
	// students see a missing record and someone else's record the same way
	if appErrors.HasCode(err, appErrors.ErrNotFound.Code) || (err == nil && detail.StudentID != claims.UserID) {
		return nil, resolverError(appErrors.Clone(appErrors.ErrNotFound, "enrollment not found: "+id))
	}
	if err != nil {
		return nil, resolverError(err)
	}
	return enrollmentMap(detail), nil
}

func (r *resolver) enrollmentList(p gql.ResolveParams) (interface{}, error) {
	if _, err := requireRoles(p.Context, readerRoles...); err != nil {
		return nil, err
	}
	filter := models.EnrollmentFilter{
		Page:     intArg(p.Args, "page"),
		PageSize: intArg(p.Args, "pageSize"),
	}
	if status, ok := p.Args["paymentStatus"].(models.PaymentStatus); ok {
		filter.PaymentStatus = status
	}
	items, pagination, err := r.enrollments.List(p.Context, filter)
	if err != nil {
		return nil, resolverError(err)
	}
	out := map[string]interface{}{"items": enrollmentMaps(items)}
	if pagination != nil {
		out["pagination"] = map[string]interface{}{
			"page":       pagination.Page,
			"pageSize":   pagination.PageSize,
			"totalCount": pagination.TotalCount,
		}
	}
	return out, nil
}

func (r *resolver) enrollmentsByStudent(p gql.ResolveParams) (interface{}, error) {
	claims, err := authenticated(p.Context)
	if err != nil {
		return nil, err
	}
	studentID := stringArg(p.Args, "studentId")
	if !hasRole(claims, readerRoles...) && studentID != claims.UserID {
		return nil, resolverError(appErrors.Clone(appErrors.ErrForbidden, "students may only read their own enrollments"))
	}
	items, err := r.enrollments.ListByStudent(p.Context, studentID)
	if err != nil {
		return nil, resolverError(err)
	}
	return enrollmentMaps(items), nil
}

func (r *resolver) offering(p gql.ResolveParams) (interface{}, error) {
	if _, err := authenticated(p.Context); err != nil {
		return nil, err
	}
	detail, err := r.offerings.Get(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, resolverError(err)
	}
	return offeringMap(detail), nil
}

func (r *resolver) activeOfferings(p gql.ResolveParams) (interface{}, error) {
	if _, err := authenticated(p.Context); err != nil {
		return nil, err
	}
	items, err := r.offerings.ListActive(p.Context)
	if err != nil {
		return nil, resolverError(err)
	}
	out := make([]map[string]interface{}, 0, len(items))
	for i := range items {
		out = append(out, offeringMap(&items[i]))
	}
	return out, nil
}

func (r *resolver) createEnrollment(p gql.ResolveParams) (interface{}, error) {
	if _, err := requireRoles(p.Context, staffRoles...); err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]interface{})
	req := service.CreateEnrollmentRequest{
		Code:       stringArg(input, "code"),
		OfferingID: stringArg(input, "offeringId"),
		StudentID:  stringArg(input, "studentId"),
	}
	if v, ok := optionalString(input, "subsidyEntityId"); ok {
		req.SubsidyEntityID = &v
	}
	amount, err := decimalArg(input, "subsidizedAmount")
	if err != nil {
		return nil, err
	}
	req.SubsidizedAmount = amount

	detail, err := r.enrollments.Create(p.Context, req)
	if err != nil {
		return nil, resolverError(err)
	}
	return enrollmentMap(detail), nil
}

func (r *resolver) updateEnrollment(p gql.ResolveParams) (interface{}, error) {
	if _, err := requireRoles(p.Context, staffRoles...); err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]interface{})
	var req service.UpdateEnrollmentRequest
	if v, ok := optionalString(input, "code"); ok {
		req.Code = &v
	}
	if v, ok := optionalString(input, "offeringId"); ok {
		req.OfferingID = &v
	}
	if v, ok := optionalString(input, "subsidyEntityId"); ok {
		req.SubsidyEntityID = &v
	}
	if status, ok := input["paymentStatus"].(models.PaymentStatus); ok {
		req.PaymentStatus = &status
	}
	amount, err := decimalArg(input, "subsidizedAmount")
	if err != nil {
		return nil, err
	}
	req.SubsidizedAmount = amount

	detail, err := r.enrollments.Update(p.Context, stringArg(p.Args, "id"), req)
	if err != nil {
		return nil, resolverError(err)
	}
	return enrollmentMap(detail), nil
}

func (r *resolver) deleteEnrollment(p gql.ResolveParams) (interface{}, error) {
	if _, err := requireRoles(p.Context, staffRoles...); err != nil {
		return nil, err
	}
	if err := r.enrollments.Delete(p.Context, stringArg(p.Args, "id")); err != nil {
		return nil, resolverError(err)
	}
	return true, nil
}

func enrollmentMap(d *models.EnrollmentDetail) map[string]interface{} {
	m := map[string]interface{}{
		"id":               d.ID,
		"code":             d.Code,
		"offeringId":       d.OfferingID,
		"offeringCode":     d.OfferingCode,
		"studentId":        d.StudentID,
		"studentName":      d.StudentName,
		"enrolledAt":       d.EnrolledAt,
		"grossPrice":       d.GrossPrice.StringFixed(2),
		"discountApplied":  d.DiscountApplied.StringFixed(2),
		"discountReason":   d.DiscountReason,
		"subsidizedAmount": d.SubsidizedAmount.StringFixed(2),
		"finalPrice":       d.FinalPrice.StringFixed(2),
		"paymentStatus":    d.PaymentStatus,
	}
	if d.SubsidyEntityID != nil {
		m["subsidyEntityId"] = *d.SubsidyEntityID
	}
	return m
}

func enrollmentMaps(items []models.EnrollmentDetail) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for i := range items {
		out = append(out, enrollmentMap(&items[i]))
	}
	return out
}

func offeringMap(d *models.OfferingDetail) map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"code":       d.Code,
		"courseId":   d.CourseID,
		"courseName": d.CourseName,
		"teacherId":  d.TeacherID,
		"centerId":   d.CenterID,
		"centerName": d.CenterName,
		"startDate":  d.StartDate,
		"endDate":    d.EndDate,
		"active":     d.Active,
	}
	if d.TeacherName != nil {
		m["teacherName"] = *d.TeacherName
	}
	return m
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func optionalString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func intArg(args map[string]interface{}, key string) int {
	v, _ := args[key].(int)
	return v
}

func decimalArg(args map[string]interface{}, key string) (*decimal.Decimal, error) {
	raw, ok := optionalString(args, key)
	if !ok {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, resolverError(appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("%s must be a decimal number", key)))
	}
	return &d, nil
}
