package pg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/analytics"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/migrations"
)

var now = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestWhereBuilder(t *testing.T) {
	var w where
	w.raw("c.status = 'published'")
	w.add("c.category = $%d", "go")
	w.add("(c.title ilike $%d or c.description ilike $%d)", "%x%")
	assert.Equal(t, " where c.status = 'published' and c.category = $1 and (c.title ilike $2 or c.description ilike $2)", w.String())

	limit, args := w.page(pagination.Page{Limit: 500, Offset: -3})
	assert.Equal(t, " limit $3 offset $4", limit)
	assert.Equal(t, []any{"go", "%x%", pagination.MaxLimit, 0}, args)
	assert.Len(t, w.args, 2, "page must not grow the filter arguments")

	var empty where
	assert.Equal(t, "", empty.String())
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%100\%\_off%`, likePattern(" 100%_off "))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(q("insert into users")).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_email_key"})

	_, err := s.CreateUser(context.Background(), users.User{ID: "u1", Email: "a@b.test", Role: "student", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, users.ErrEmailTaken)
}

func userRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "full_name", "institution", "role", "is_active", "password_hash", "last_login_at", "created_at", "updated_at"})
}

func TestGetUser(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("from users where id = $1")).WithArgs("missing").WillReturnRows(userRow())
	mock.ExpectQuery(q("from users where lower(email) = lower($1)")).WithArgs("Ada@Example.test").
		WillReturnRows(userRow().AddRow("u1", "ada@example.test", "Ada", "", "instructor", true, "hash", nil, now, now))

	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, users.ErrNotFound)

	u, err := s.GetUserByEmail(context.Background(), "Ada@Example.test")
	require.NoError(t, err)
	assert.Equal(t, "instructor", string(u.Role))
	assert.True(t, u.IsActive)
	assert.Nil(t, u.LastLoginAt)
}

func TestListUsersFiltersAndPages(t *testing.T) {
	s, mock := newMock(t)
	active := true
	mock.ExpectQuery(q("select count(*) from users where role = $1 and is_active = $2 and (full_name ilike $3")).
		WithArgs("student", true, "%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(q("order by created_at desc, id desc limit $4 offset $5")).
		WithArgs("student", true, "%ada%", 2, 2).
		WillReturnRows(userRow().AddRow("u3", "ada3@x.test", "Ada 3", "", "student", true, "h", nil, now, now))

	items, total, err := s.ListUsers(context.Background(),
		users.Filter{Role: "student", Active: &active, Search: "ada"}, pagination.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "u3", items[0].ID)
}

func TestDeleteUserMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(q("delete from users where id = $1")).WithArgs("u9").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteUser(context.Background(), "u9"), users.ErrNotFound)
}

func courseRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "category", "level", "price_cents", "status",
		"instructor_id", "full_name", "enrolled_count", "created_at", "updated_at"})
}

func TestListCoursesVisibility(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("select count(*) from courses c left join users u on u.id = c.instructor_id where (c.status = 'published' or c.instructor_id = $1)")).
		WithArgs("inst").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(q("order by c.price_cents asc, c.created_at desc, c.id desc limit $2 offset $3")).
		WithArgs("inst", pagination.DefaultLimit, 0).
		WillReturnRows(courseRow().AddRow("c1", "Go", "", "dev", "beginner", int64(4990), "draft", "inst", "Grace", int64(2), now, now))

	items, total, err := s.ListCourses(context.Background(),
		catalog.Filter{VisibleTo: "inst", Sort: catalog.SortPriceAsc}, pagination.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.EqualValues(t, 4990, items[0].Price)
	assert.Equal(t, "inst", items[0].OwnerID())
	assert.Equal(t, "Grace", items[0].InstructorName)
	assert.Equal(t, 2, items[0].EnrolledCount)
}

func TestDeleteCourseInUse(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(q("delete from courses where id = $1")).WithArgs("c1").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "modules_course_id_fkey"})

	assert.ErrorIs(t, s.DeleteCourse(context.Background(), "c1"), catalog.ErrInUse)
}

func enrollmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "title", "full_name", "status",
		"progress_percent", "enrolled_at", "completed_at", "cancelled_at", "updated_at"})
}

func newEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{ID: "e-new", StudentID: "s1", CourseID: "c1", Status: enrollment.StatusActive, EnrolledAt: now, UpdatedAt: now}
}

func TestEnrollStudent(t *testing.T) {
	t.Run("reactivates cancelled row", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(q("on conflict (student_id, course_id) do update")).
			WithArgs("e-new", "s1", "c1", "active", 0, now, now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("e-old"))
		mock.ExpectQuery(q("where e.id = $1")).WithArgs("e-old").
			WillReturnRows(enrollmentRows().AddRow("e-old", "s1", "c1", "Go", "Sam", "active", 40, now.Add(-time.Hour), nil, nil, now))

		got, reactivated, err := s.EnrollStudent(context.Background(), newEnrollment())
		require.NoError(t, err)
		assert.True(t, reactivated)
		assert.Equal(t, "e-old", got.ID)
		assert.Equal(t, 40, got.ProgressPercent)
	})
	t.Run("live row conflicts", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(q("on conflict (student_id, course_id) do update")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, _, err := s.EnrollStudent(context.Background(), newEnrollment())
		assert.ErrorIs(t, err, enrollment.ErrAlreadyEnrolled)
	})
	t.Run("unknown course", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(q("insert into enrollments")).
			WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "enrollments_course_id_fkey"})

		_, _, err := s.EnrollStudent(context.Background(), newEnrollment())
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestMutateEnrollment(t *testing.T) {
	advance := func(e enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
		e.ProgressPercent = 60
		e.UpdatedAt = now
		return e, true, nil
	}

	t.Run("writes under row lock", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("where e.id = $1 for update of e")).WithArgs("e1").
			WillReturnRows(enrollmentRows().AddRow("e1", "s1", "c1", "Go", "Sam", "active", 20, now, nil, nil, now))
		mock.ExpectExec(q("update enrollments")).
			WithArgs("e1", "active", 60, nil, nil, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(q("where e.id = $1")).WithArgs("e1").
			WillReturnRows(enrollmentRows().AddRow("e1", "s1", "c1", "Go", "Sam", "active", 60, now, nil, nil, now))
		mock.ExpectCommit()

		before, after, changed, err := s.MutateEnrollment(context.Background(), "e1", advance)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 20, before.ProgressPercent)
		assert.Equal(t, 60, after.ProgressPercent)
	})
	t.Run("unchanged skips the write", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("for update of e")).
			WillReturnRows(enrollmentRows().AddRow("e1", "s1", "c1", "Go", "Sam", "active", 20, now, nil, nil, now))
		mock.ExpectCommit()

		_, _, changed, err := s.MutateEnrollment(context.Background(), "e1",
			func(e enrollment.Enrollment) (enrollment.Enrollment, bool, error) { return e, false, nil })
		require.NoError(t, err)
		assert.False(t, changed)
	})
	t.Run("rule failure rolls back", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("for update of e")).
			WillReturnRows(enrollmentRows().AddRow("e1", "s1", "c1", "Go", "Sam", "cancelled", 20, now, nil, now, now))
		mock.ExpectRollback()

		_, _, _, err := s.MutateEnrollment(context.Background(), "e1",
			func(enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
				return enrollment.Enrollment{}, false, enrollment.ErrCancelled
			})
		assert.ErrorIs(t, err, enrollment.ErrCancelled)
	})
	t.Run("missing row", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("for update of e")).WillReturnRows(enrollmentRows())
		mock.ExpectRollback()

		_, _, _, err := s.MutateEnrollment(context.Background(), "nope", advance)
		assert.ErrorIs(t, err, enrollment.ErrNotFound)
	})
}

func TestIssueCertificateOncePerEnrollment(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("insert into certificates")).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "certificates_enrollment_id_key"})

	_, err := s.IssueCertificate(context.Background(), enrollment.Certificate{ID: "x", EnrollmentID: "e1", IssuedAt: now})
	assert.ErrorIs(t, err, enrollment.ErrCertificateExists)
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "title", "amount_cents", "status", "reference",
		"created_at", "updated_at", "settled_at"})
}

func TestCreatePaymentPendingExists(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(q("insert into payments")).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: pendingPaymentIndex})

	_, err := s.CreatePayment(context.Background(), payment.Payment{ID: "p1", StudentID: "s1", CourseID: "c1", Amount: 100, Status: payment.StatusPending})
	assert.ErrorIs(t, err, payment.ErrPendingExists)
}

func TestSettlePayment(t *testing.T) {
	t.Run("pending becomes paid", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("for update of p")).WithArgs("p1").
			WillReturnRows(paymentRows().AddRow("p1", "s1", "c1", "Go", int64(4990), "pending", "", now, now, nil))
		mock.ExpectExec(q("update payments set status = $2")).
			WithArgs("p1", "paid", "INV-7", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		before, after, err := s.SettlePayment(context.Background(), "p1", payment.StatusPaid, "INV-7", now)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusPending, before.Status)
		assert.Equal(t, payment.StatusPaid, after.Status)
		require.NotNil(t, after.SettledAt)
		assert.Equal(t, now, *after.SettledAt)
	})
	t.Run("settled payment is rejected", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("for update of p")).
			WillReturnRows(paymentRows().AddRow("p1", "s1", "c1", "Go", int64(4990), "failed", "", now, now, now))
		mock.ExpectRollback()

		_, _, err := s.SettlePayment(context.Background(), "p1", payment.StatusPaid, "", now)
		assert.ErrorIs(t, err, payment.ErrNotPending)
	})
}

func TestApplySettingsWritesOnlyChanges(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("select value from system_settings where key = $1 for update")).WithArgs("maintenance_mode").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("false"))
	mock.ExpectQuery(q("for update")).WithArgs("site_name").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("Old"))
	mock.ExpectExec(q("insert into system_settings")).
		WithArgs("site_name", "SkillArc", "admin", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("for update")).WithArgs("theme").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec(q("insert into system_settings")).
		WithArgs("theme", "dark", "admin", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changes, err := s.ApplySettings(context.Background(),
		map[string]string{"theme": "dark", "site_name": "SkillArc", "maintenance_mode": "false"}, "admin", now)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "site_name", changes[0].Key)
	require.NotNil(t, changes[0].Old)
	assert.Equal(t, "Old", *changes[0].Old)
	assert.Equal(t, "theme", changes[1].Key)
	assert.Nil(t, changes[1].Old)
}

func TestAuditEntries(t *testing.T) {
	t.Run("append encodes snapshots", func(t *testing.T) {
		s, mock := newMock(t)
		actor := "u1"
		mock.ExpectExec(q("insert into audit_logs")).
			WithArgs("a1", "u1", "UPDATE", "courses", "c1", nil, `{"title":"Go"}`, "10.0.0.1", "req", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.AppendAuditEntry(context.Background(), audit.Entry{
			ID: "a1", ActorUserID: &actor, Action: audit.ActionUpdate, TargetTable: "courses", TargetID: "c1",
			NewValues: map[string]any{"title": "Go"}, IPAddress: "10.0.0.1", RequestID: "req", CreatedAt: now,
		})
		require.NoError(t, err)
	})
	t.Run("get decodes snapshots", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(q("from audit_logs where id = $1")).WithArgs("a1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "actor_user_id", "action", "target_table", "target_id",
				"old_values", "new_values", "ip_address", "request_id", "created_at"}).
				AddRow("a1", nil, "DELETE", "users", "u2", []byte(`{"email":"x@y.test"}`), nil, "", "", now))

		e, err := s.GetAuditEntry(context.Background(), "a1")
		require.NoError(t, err)
		assert.Nil(t, e.ActorUserID)
		assert.Equal(t, "x@y.test", e.OldValues["email"])
		assert.Nil(t, e.NewValues)
	})
	t.Run("list continues past a cursor", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(q("select count(*) from audit_logs where action = $1 and (created_at, id) < ($2, $3)")).
			WithArgs("DELETE", now, "a9").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(q("where action = $1 and (created_at, id) < ($2, $3) order by created_at desc, id desc limit $4 offset $5")).
			WithArgs("DELETE", now, "a9", 200, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "actor_user_id", "action", "target_table", "target_id",
				"old_values", "new_values", "ip_address", "request_id", "created_at"}).
				AddRow("a8", nil, "DELETE", "lessons", "l1", nil, nil, "", "", now))

		items, total, err := s.ListAuditEntries(context.Background(), audit.Filter{
			Action:    audit.ActionDelete,
			OlderThan: &audit.Cursor{CreatedAt: now, ID: "a9"},
		}, pagination.Page{Limit: 200})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, "a8", items[0].ID)
	})
	t.Run("replace of missing entry rolls back", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("delete from audit_logs where id = $1")).WithArgs("gone").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.ReplaceAuditEntry(context.Background(), "gone", audit.Entry{ID: "t1", Action: audit.ActionDelete, CreatedAt: now})
		assert.ErrorIs(t, err, audit.ErrNotFound)
	})
}

func TestEnrollmentBucketsNormalizeToUTC(t *testing.T) {
	s, mock := newMock(t)
	from := now.AddDate(0, -2, 0)
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("date_trunc($1, enrolled_at at time zone 'UTC')")).WithArgs("month", from).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}).AddRow(march, 4))
	mock.ExpectQuery(q("date_trunc($1, completed_at at time zone 'UTC')")).WithArgs("month", from).
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}).AddRow(march, 1))

	enrolled, completed, err := s.EnrollmentBuckets(context.Background(), analytics.UnitMonth, from)
	require.NoError(t, err)
	assert.Equal(t, map[time.Time]int{march: 4}, enrolled)
	assert.Equal(t, map[time.Time]int{march: 1}, completed)

	_, _, err = s.EnrollmentBuckets(context.Background(), analytics.Unit("week"), from)
	assert.Error(t, err)
}

func TestCourseStatsScopedToInstructor(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("where c.status = 'published' and c.instructor_id = $1")).WithArgs("inst").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "instructor_id", "enrollments", "completions"}).
			AddRow("c1", "Go", "inst", int64(4), int64(1)))

	stats, err := s.CourseStats(context.Background(), "inst")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 4, stats[0].Enrollments)
	assert.Equal(t, 1, stats[0].Completions)
}

func TestWriteDump(t *testing.T) {
	var buf bytes.Buffer
	var statements []string
	err := writeDump(context.Background(), &buf, now, func(_ context.Context, w io.Writer, statement string) error {
		statements = append(statements, statement)
		_, err := io.WriteString(w, "row\t1\n")
		return err
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "-- SkillArc database dump\n-- taken at 2024-03-10T09:30:00Z\n"))
	assert.Contains(t, out, "begin;\n")
	assert.Contains(t, out, "truncate table users, courses,")
	assert.Contains(t, out, "copy users from stdin;\nrow\t1\n\\.\n")
	assert.True(t, strings.HasSuffix(out, "commit;\n"))
	require.Len(t, statements, len(dumpTables))
	assert.Equal(t, "copy users to stdout", statements[0])
	assert.Equal(t, "copy audit_logs to stdout", statements[len(statements)-1])
}

func TestWriteDumpStopsOnCopyError(t *testing.T) {
	boom := errors.New("connection reset")
	err := writeDump(context.Background(), io.Discard, now, func(context.Context, io.Writer, string) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dump users")
}

func TestDumpCoversEverySchemaTable(t *testing.T) {
	raw, err := migrations.FS.ReadFile(migrations.MigrationsDir + "/0001_init.up.sql")
	require.NoError(t, err)
	var schema []string
	for _, m := range regexp.MustCompile(`(?m)^create table (\w+)`).FindAllStringSubmatch(string(raw), -1) {
		schema = append(schema, m[1])
	}
	dumped := append([]string(nil), dumpTables...)
	sort.Strings(schema)
	sort.Strings(dumped)
	assert.Equal(t, schema, dumped)
}
