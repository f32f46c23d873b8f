package auth

import "fmt"

// Action identifies a guarded operation.
type Action string

const (
	ActionUserManage    Action = "user.manage"
	ActionProfileManage Action = "user.profile"

	ActionCourseCreate           Action = "course.create"
	ActionCourseEdit             Action = "course.edit"
	ActionCoursePublish          Action = "course.publish"
	ActionCourseAssignInstructor Action = "course.assign_instructor"
	ActionCourseDelete           Action = "course.delete"
	ActionCourseViewDrafts       Action = "course.view_drafts"

	ActionContentManage Action = "content.manage"

	ActionEnroll             Action = "enrollment.create"
	ActionEnrollmentProgress Action = "enrollment.progress"
	ActionEnrollmentCancel   Action = "enrollment.cancel"
	ActionEnrollmentComplete Action = "enrollment.complete"
	ActionEnrollmentReset    Action = "enrollment.reset"
	ActionEnrollmentReadAll  Action = "enrollment.read_all"
	ActionCourseRosterRead   Action = "enrollment.read_course"

	ActionReadOwn Action = "self.read"

	ActionSubmit          Action = "assessment.submit"
	ActionSubmissionGrade Action = "assessment.grade"

	ActionPaymentCreate  Action = "payment.create"
	ActionPaymentSettle  Action = "payment.settle"
	ActionPaymentReadAll Action = "payment.read_all"

	ActionAnalyticsRead       Action = "analytics.read"
	ActionAnalyticsCourseRead Action = "analytics.read_courses"

	ActionAuditRead  Action = "audit.read"
	ActionAuditPurge Action = "audit.purge"

	ActionSettingsRead  Action = "settings.read"
	ActionSettingsWrite Action = "settings.write"

	ActionBackupManage Action = "backup.manage"
)

// Target describes the object an action applies to. OwnerID is the user who
// owns it: the course instructor for course-scoped actions, the student for
// enrollments and payments, the user for profiles.
type Target struct {
	OwnerID string
}

// OwnedBy is shorthand for Target{OwnerID: id}.
func OwnedBy(id string) Target { return Target{OwnerID: id} }

type rule func(a Actor, t Target) bool

func adminOnly(a Actor, _ Target) bool { return a.IsAdmin() }

func anyRole(a Actor, _ Target) bool { return a.Role.Valid() }

func instructorOrAdmin(a Actor, _ Target) bool { return a.IsAdmin() || a.IsInstructor() }

func studentOnly(a Actor, _ Target) bool { return a.IsStudent() }

// owningInstructorOrAdmin admits admins and the instructor whose id matches the owner.
func owningInstructorOrAdmin(a Actor, t Target) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsInstructor() && t.OwnerID != "" && t.OwnerID == a.ID
}

func owningStudentOrAdmin(a Actor, t Target) bool {
	if a.IsAdmin() {
		return true
	}
	return a.IsStudent() && t.OwnerID != "" && t.OwnerID == a.ID
}

func selfOrAdmin(a Actor, t Target) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role.Valid() && t.OwnerID != "" && t.OwnerID == a.ID
}

var rules = map[Action]rule{
	ActionUserManage:    adminOnly,
	ActionProfileManage: selfOrAdmin,

	ActionCourseCreate:           instructorOrAdmin,
	ActionCourseEdit:             adminOnly,
	ActionCoursePublish:          owningInstructorOrAdmin,
	ActionCourseAssignInstructor: adminOnly,
	ActionCourseDelete:           adminOnly,
	ActionCourseViewDrafts:       owningInstructorOrAdmin,

	ActionContentManage: owningInstructorOrAdmin,

	ActionEnroll:             studentOnly,
	ActionEnrollmentProgress: owningStudentOrAdmin,
	ActionEnrollmentCancel:   owningStudentOrAdmin,
	ActionEnrollmentComplete: owningInstructorOrAdmin,
	ActionEnrollmentReset:    adminOnly,
	ActionEnrollmentReadAll:  adminOnly,
	ActionCourseRosterRead:   owningInstructorOrAdmin,

	ActionReadOwn: selfOrAdmin,

	ActionSubmit:          studentOnly,
	ActionSubmissionGrade: owningInstructorOrAdmin,

	ActionPaymentCreate:  studentOnly,
	ActionPaymentSettle:  adminOnly,
	ActionPaymentReadAll: adminOnly,

	ActionAnalyticsRead:       adminOnly,
	ActionAnalyticsCourseRead: instructorOrAdmin,

	ActionAuditRead:  adminOnly,
	ActionAuditPurge: adminOnly,

	ActionSettingsRead:  anyRole,
	ActionSettingsWrite: adminOnly,

	ActionBackupManage: adminOnly,
}

// Can reports whether actor may perform action on target. Unknown actions and
// actors without a valid role are always denied.
func Can(actor Actor, action Action, target Target) bool {
	if actor.ID == "" || !actor.Role.Valid() {
		return false
	}
	r, ok := rules[action]
	if !ok {
		return false
	}
	return r(actor, target)
}

// Authorize returns ErrForbidden, wrapped with the action name, when Can denies.
func Authorize(actor Actor, action Action, target Target) error {
	if Can(actor, action, target) {
		return nil
	}
	return fmt.Errorf("%s: %w", action, ErrForbidden)
}
