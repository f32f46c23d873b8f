package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/analytics"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app/apptest"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
)

func TestDashboard(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	inst := env.User(t, auth.RoleInstructor).Actor()
	s1 := env.User(t, auth.RoleStudent).Actor()
	s2 := env.User(t, auth.RoleStudent).Actor()
	popular := env.Course(t, inst, 0, catalog.StatusPublished)
	quiet := env.Course(t, inst, 0, catalog.StatusPublished)
	env.Course(t, inst, 0, catalog.StatusDraft)

	for _, s := range []auth.Actor{s1, s2} {
		_, err := env.Enrollments.Enroll(ctx, s, popular.ID)
		require.NoError(t, err)
	}
	e, err := env.Enrollments.Enroll(ctx, s1, quiet.ID)
	require.NoError(t, err)
	_, err = env.Enrollments.RecordProgress(ctx, s1, e.ID, 100)
	require.NoError(t, err)

	d, err := env.Analytics.Dashboard(ctx, env.Admin)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Counts.Users)
	assert.Equal(t, 2, d.Counts.Students)
	assert.Equal(t, 3, d.Counts.Courses)
	assert.Equal(t, 2, d.Counts.PublishedCourses)
	assert.Equal(t, 3, d.Counts.Enrollments)
	assert.Equal(t, 1, d.Counts.CompletedEnrollments)
	assert.Equal(t, 1, d.Counts.Certificates)
	assert.Equal(t, 66.67, d.Rates.PublishRate)
	assert.Equal(t, 33.33, d.Rates.CompletionRate)
	assert.Equal(t, float64(100), d.Rates.CertificationRate)
	assert.Equal(t, float64(50), d.Rates.SystemHealth)

	require.Len(t, d.Trend, 6)
	current := d.Trend[5]
	assert.Equal(t, time.Now().UTC().Format("2006-01"), current.Period)
	assert.Equal(t, 3, current.Enrollments)
	assert.Equal(t, 1, current.Completions)
	assert.Zero(t, d.Trend[0].Enrollments)

	require.Len(t, d.TopCourses, 2)
	assert.Equal(t, popular.ID, d.TopCourses[0].CourseID)

	_, err = env.Analytics.Dashboard(ctx, inst)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestEmptyDashboardIsHealthy(t *testing.T) {
	env := apptest.New(t)
	d, err := env.Analytics.Dashboard(context.Background(), env.Admin)
	require.NoError(t, err)
	assert.Equal(t, float64(100), d.Rates.SystemHealth)
	assert.NotNil(t, d.TopCourses)
	assert.Empty(t, d.TopCourses)
}

func TestDailyTrend(t *testing.T) {
	env := apptest.New(t)
	points, err := env.Analytics.EnrollmentTrends(context.Background(), env.Admin, analytics.TrendQuery{Period: "daily", Days: 3})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), points[2].Period)

	_, err = env.Analytics.EnrollmentTrends(context.Background(), env.Admin, analytics.TrendQuery{Period: "hourly"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCompletionRatesScopedToInstructor(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	mine := env.User(t, auth.RoleInstructor).Actor()
	theirs := env.User(t, auth.RoleInstructor).Actor()
	student := env.User(t, auth.RoleStudent).Actor()
	a := env.Course(t, mine, 0, catalog.StatusPublished)
	b := env.Course(t, mine, 0, catalog.StatusPublished)
	env.Course(t, theirs, 0, catalog.StatusPublished)

	ea, err := env.Enrollments.Enroll(ctx, student, a.ID)
	require.NoError(t, err)
	_, err = env.Enrollments.Enroll(ctx, student, b.ID)
	require.NoError(t, err)
	_, err = env.Enrollments.Complete(ctx, mine, ea.ID)
	require.NoError(t, err)

	stats, err := env.Analytics.CompletionRates(ctx, mine, 0)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, a.ID, stats[0].CourseID)
	assert.Equal(t, float64(100), stats[0].CompletionRate)
	assert.Equal(t, float64(0), stats[1].CompletionRate)

	all, err := env.Analytics.CompletionRates(ctx, env.Admin, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = env.Analytics.CompletionRates(ctx, env.Admin, 101)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = env.Analytics.CompletionRates(ctx, student, 0)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}
