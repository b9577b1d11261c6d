package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_Layouts(t *testing.T) {
	catalog := DefaultCatalog()

	standard, err := catalog.Definition(VariantStandard)
	require.NoError(t, err)
	gso, err := catalog.Definition(VariantGSO)
	require.NoError(t, err)
	hr, err := catalog.Definition(VariantHR)
	require.NoError(t, err)

	assert.Equal(t, 5, standard.FinalStage())
	assert.Equal(t, 6, gso.FinalStage())
	assert.Equal(t, 5, hr.FinalStage())

	q, ok := gso.QuorumStage()
	require.True(t, ok)
	assert.Equal(t, 3, q.Number)
	assert.Equal(t, RoleBACMember, q.Role)

	_, ok = standard.QuorumStage()
	assert.False(t, ok)

	// HR shares the standard layout with its own labels
	require.Len(t, hr.Stages, len(standard.Stages))
	for i := range hr.Stages {
		assert.Equal(t, standard.Stages[i].Number, hr.Stages[i].Number)
		assert.Equal(t, standard.Stages[i].Role, hr.Stages[i].Role)
	}
	assert.NotEqual(t, standard.Stages[0].Label, hr.Stages[0].Label)
}

func TestCatalog_DefinitionIsACopy(t *testing.T) {
	catalog := DefaultCatalog()

	def, err := catalog.Definition(VariantStandard)
	require.NoError(t, err)
	def.Stages[0].Role = RoleAdmin

	again, err := catalog.Definition(VariantStandard)
	require.NoError(t, err)
	assert.Equal(t, RoleDepartmentHead, again.Stages[0].Role)
}

func TestNewCatalog_Validation(t *testing.T) {
	mutate := func(fn func(defs []Definition) []Definition) []Definition {
		return fn(DefaultDefinitions())
	}

	tests := []struct {
		name string
		defs []Definition
	}{
		{
			name: "missing variant",
			defs: mutate(func(d []Definition) []Definition { return d[:2] }),
		},
		{
			name: "duplicate variant",
			defs: mutate(func(d []Definition) []Definition { return append(d, d[0]) }),
		},
		{
			name: "unknown variant",
			defs: mutate(func(d []Definition) []Definition {
				return append(d, Definition{Variant: "LEGACY", Stages: d[0].Stages})
			}),
		},
		{
			name: "stage gap",
			defs: mutate(func(d []Definition) []Definition { d[0].Stages[2].Number = 7; return d }),
		},
		{
			name: "role holds two seats",
			defs: mutate(func(d []Definition) []Definition { d[0].Stages[1].Role = RoleDepartmentHead; return d }),
		},
		{
			name: "final stage quorum",
			defs: mutate(func(d []Definition) []Definition { d[0].Stages[4].Quorum = true; return d }),
		},
		{
			name: "two quorum stages",
			defs: mutate(func(d []Definition) []Definition { d[1].Stages[0].Quorum = true; return d }),
		},
		{
			name: "terminal status as intermediate",
			defs: mutate(func(d []Definition) []Definition { d[0].Stages[0].OnApproveStatus = StateReleased; return d }),
		},
		{
			name: "intermediate status moves backward",
			defs: mutate(func(d []Definition) []Definition {
				d[0].Stages[0].OnApproveStatus = StateApproved
				d[0].Stages[1].OnApproveStatus = StateValidated
				return d
			}),
		},
		{
			name: "final stage sets status",
			defs: mutate(func(d []Definition) []Definition { d[0].Stages[4].OnApproveStatus = StateApproved; return d }),
		},
		{
			name: "empty label",
			defs: mutate(func(d []Definition) []Definition { d[2].Stages[3].Label = ""; return d }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.defs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
		})
	}
}

func TestNewCatalog_AcceptsIntermediateStatuses(t *testing.T) {
	defs := DefaultDefinitions()
	defs[0].Stages[0].OnApproveStatus = StateValidated
	defs[0].Stages[1].OnApproveStatus = StateApproved

	catalog, err := NewCatalog(defs)
	require.NoError(t, err)

	def, err := catalog.Definition(VariantStandard)
	require.NoError(t, err)
	statuses := def.ActionableStatuses()
	assert.True(t, statuses[StatePending])
	assert.True(t, statuses[StateValidated])
	assert.True(t, statuses[StateApproved])
	assert.False(t, statuses[StateDraft])
}

func TestSelectVariant(t *testing.T) {
	tests := []struct {
		role Role
		want Variant
	}{
		{RoleGSO, VariantGSO},
		{RoleHR, VariantHR},
		{RoleRequester, VariantStandard},
		{Role("SOMETHING_ELSE"), VariantStandard},
		{Role(""), VariantStandard},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, SelectVariant(tt.role))
		})
	}
}

func TestResolveStage_DependsOnVariant(t *testing.T) {
	catalog := DefaultCatalog()
	standard, _ := catalog.Definition(VariantStandard)
	gso, _ := catalog.Definition(VariantGSO)

	s, ok := ResolveStage(standard, RoleBudget)
	require.True(t, ok)
	assert.Equal(t, 3, s.Number)

	s, ok = ResolveStage(gso, RoleBudget)
	require.True(t, ok)
	assert.Equal(t, 4, s.Number)

	_, ok = ResolveStage(standard, RoleBACMember)
	assert.False(t, ok, "BAC members have no seat in the standard variant")

	_, ok = ResolveStage(gso, RoleRequester)
	assert.False(t, ok)

	_, ok = ResolveStage(nil, RoleBudget)
	assert.False(t, ok)
}
