package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func amount(v float64) *float64 { return &v }

func TestRestrictions_Permits(t *testing.T) {
	// 2026-03-04 is a Wednesday
	wednesdayMorning := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	wednesdayNight := time.Date(2026, 3, 4, 22, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)

	restricted := Restrictions{
		AllowedContractTypes: []string{"obra", "bien"},
		AllowedPhases:        []string{"PREPARATORIA"},
		MaxAmount:            amount(50000),
		TimeWindow: &TimeWindow{
			StartHour: 8,
			EndHour:   18,
			Days:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		},
		AllowedIPs: []string{"10.0.0.0/8"},
		DeniedIPs:  []string{"10.0.0.13"},
	}

	tests := []struct {
		name       string
		ctx        RestrictionContext
		wantOK     bool
		wantReason string
	}{
		{"empty context passes", RestrictionContext{}, true, ""},
		{"allowed type is case insensitive", RestrictionContext{ContractType: "OBRA"}, true, ""},
		{"type outside list", RestrictionContext{ContractType: "servicio"}, false, "Contract type not allowed"},
		{"phase outside list", RestrictionContext{Phase: "CONTRACTUAL"}, false, "Contract phase not allowed"},
		{"amount at limit", RestrictionContext{Amount: amount(50000)}, true, ""},
		{"amount over limit", RestrictionContext{Amount: amount(50000.01)}, false, "Amount exceeds allowed maximum"},
		{"inside window", RestrictionContext{At: wednesdayMorning}, true, ""},
		{"outside hours", RestrictionContext{At: wednesdayNight}, false, "Outside allowed time window"},
		{"outside days", RestrictionContext{At: sunday}, false, "Outside allowed time window"},
		{"ip in allow range", RestrictionContext{IP: "10.1.2.3"}, true, ""},
		{"ip outside allow range", RestrictionContext{IP: "192.168.1.1"}, false, "IP address not allowed"},
		{"deny wins over allow", RestrictionContext{IP: "10.0.0.13"}, false, "IP address denied"},
		{"garbage ip", RestrictionContext{IP: "not-an-ip"}, false, "Invalid client IP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := restricted.Permits(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestRestrictions_EmptyAllowsEverything(t *testing.T) {
	ok, reason := Restrictions{}.Permits(RestrictionContext{
		ContractType: "obra",
		Phase:        "EJECUCION",
		Amount:       amount(1e9),
		At:           time.Now(),
		IP:           "203.0.113.7",
	})
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestTimeWindow_WrapsMidnight(t *testing.T) {
	w := &TimeWindow{StartHour: 22, EndHour: 6}

	assert.True(t, w.contains(time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)))
	assert.True(t, w.contains(time.Date(2026, 1, 1, 5, 59, 0, 0, time.UTC)))
	assert.False(t, w.contains(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestRestrictions_Validate(t *testing.T) {
	assert.NoError(t, Restrictions{AllowedIPs: []string{"192.168.0.0/16", "::1"}}.Validate())
	assert.Error(t, Restrictions{MaxAmount: amount(-1)}.Validate())
	assert.Error(t, Restrictions{TimeWindow: &TimeWindow{StartHour: 25}}.Validate())
	assert.Error(t, Restrictions{DeniedIPs: []string{"10.0.0.300"}}.Validate())
}

func TestAccessRecord_CloneIsDeep(t *testing.T) {
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	dept := primitive.NewObjectID()
	rec := &AccessRecord{
		AccessLevel: AccessLevelObserver,
		CrossDepartmentAccess: CrossDepartmentAccess{
			ViewableDepartments: []ViewableDepartment{{Department: dept, AccessLevel: CrossDepartmentReadOnly}},
		},
		Restrictions: Restrictions{AllowedPhases: []string{"PREPARATORIA"}},
		Validity:     Validity{EndDate: &end},
	}

	c := rec.Clone()
	c.CrossDepartmentAccess.ViewableDepartments[0].AccessLevel = CrossDepartmentCollaborate
	c.Restrictions.AllowedPhases[0] = "EJECUCION"
	*c.Validity.EndDate = end.AddDate(1, 0, 0)

	require.Len(t, rec.CrossDepartmentAccess.ViewableDepartments, 1)
	assert.Equal(t, CrossDepartmentReadOnly, rec.CrossDepartmentAccess.ViewableDepartments[0].AccessLevel)
	assert.Equal(t, "PREPARATORIA", rec.Restrictions.AllowedPhases[0])
	assert.Equal(t, end, *rec.Validity.EndDate)
}
