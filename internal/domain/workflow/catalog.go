package workflow

import (
	"fmt"
)

// Catalog holds the stage table of every variant. It is built once and shared
// by the validator and the projector so the two cannot disagree.
type Catalog struct {
	definitions map[Variant]Definition
}

// DefaultDefinitions returns the built-in stage tables.
// GSO inserts the Bids and Awards Committee quorum stage between executive
// approval and budget, shifting every later stage by one.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Variant: VariantStandard,
			Stages: []Stage{
				{Number: 1, Role: RoleDepartmentHead, Label: "Department Head Endorsement"},
				{Number: 2, Role: RoleMayor, Label: "Executive Approval"},
				{Number: 3, Role: RoleBudget, Label: "Budget Certification"},
				{Number: 4, Role: RoleAccounting, Label: "Accounting Review"},
				{Number: 5, Role: RoleTreasury, Label: "Treasury Release"},
			},
		},
		{
			Variant: VariantGSO,
			Stages: []Stage{
				{Number: 1, Role: RoleDepartmentHead, Label: "GSO Head Endorsement"},
				{Number: 2, Role: RoleMayor, Label: "Executive Approval"},
				{Number: 3, Role: RoleBACMember, Label: "Bids and Awards Committee Review", Quorum: true},
				{Number: 4, Role: RoleBudget, Label: "Budget Certification"},
				{Number: 5, Role: RoleAccounting, Label: "Accounting Review"},
				{Number: 6, Role: RoleTreasury, Label: "Treasury Release"},
			},
		},
		{
			Variant: VariantHR,
			Stages: []Stage{
				{Number: 1, Role: RoleDepartmentHead, Label: "HR Head Endorsement"},
				{Number: 2, Role: RoleMayor, Label: "Executive Approval"},
				{Number: 3, Role: RoleBudget, Label: "Budget Certification"},
				{Number: 4, Role: RoleAccounting, Label: "Payroll Accounting Review"},
				{Number: 5, Role: RoleTreasury, Label: "Treasury Release"},
			},
		},
	}
}

// DefaultCatalog returns a catalog over DefaultDefinitions
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(DefaultDefinitions())
	if err != nil {
		panic(fmt.Sprintf("built-in workflow definitions are invalid: %v", err))
	}
	return catalog
}

// NewCatalog validates the definitions and builds a catalog.
// Every known variant must be defined exactly once.
func NewCatalog(defs []Definition) (*Catalog, error) {
	definitions := make(map[Variant]Definition, len(defs))

	for _, def := range defs {
		if !def.Variant.IsValid() {
			return nil, fmt.Errorf("%w: unknown variant %q", ErrConfiguration, def.Variant)
		}
		if _, dup := definitions[def.Variant]; dup {
			return nil, fmt.Errorf("%w: variant %s defined twice", ErrConfiguration, def.Variant)
		}
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		definitions[def.Variant] = Definition{
			Variant: def.Variant,
			Stages:  append([]Stage(nil), def.Stages...),
		}
	}

	for _, v := range Variants {
		if _, ok := definitions[v]; !ok {
			return nil, fmt.Errorf("%w: variant %s is not defined", ErrConfiguration, v)
		}
	}

	return &Catalog{definitions: definitions}, nil
}

// Definition returns a copy of the stage table for a variant
func (c *Catalog) Definition(v Variant) (*Definition, error) {
	def, ok := c.definitions[v]
	if !ok {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrConfiguration, v)
	}
	return &Definition{
		Variant: def.Variant,
		Stages:  append([]Stage(nil), def.Stages...),
	}, nil
}

func validateDefinition(def Definition) error {
	if len(def.Stages) == 0 {
		return fmt.Errorf("%w: variant %s has no stages", ErrConfiguration, def.Variant)
	}

	roles := make(map[Role]int, len(def.Stages))
	quorumStages := 0
	lastRank := StatePending.rank()

	for i, s := range def.Stages {
		if s.Number != i+1 {
			return fmt.Errorf("%w: variant %s stage %d is out of order (want %d)", ErrConfiguration, def.Variant, s.Number, i+1)
		}
		if s.Role == "" {
			return fmt.Errorf("%w: variant %s stage %d has no role", ErrConfiguration, def.Variant, s.Number)
		}
		if s.Label == "" {
			return fmt.Errorf("%w: variant %s stage %d has no label", ErrConfiguration, def.Variant, s.Number)
		}
		if prev, seen := roles[s.Role]; seen {
			return fmt.Errorf("%w: variant %s role %s holds stages %d and %d", ErrConfiguration, def.Variant, s.Role, prev, s.Number)
		}
		roles[s.Role] = s.Number

		if s.Quorum {
			quorumStages++
		}

		if s.OnApproveStatus != "" {
			if !s.OnApproveStatus.IsIntermediate() {
				return fmt.Errorf("%w: variant %s stage %d sets non-intermediate status %s", ErrConfiguration, def.Variant, s.Number, s.OnApproveStatus)
			}
			if s.Quorum {
				return fmt.Errorf("%w: variant %s quorum stage %d cannot set a status", ErrConfiguration, def.Variant, s.Number)
			}
			if s.OnApproveStatus.rank() < lastRank {
				return fmt.Errorf("%w: variant %s stage %d moves status backward to %s", ErrConfiguration, def.Variant, s.Number, s.OnApproveStatus)
			}
			lastRank = s.OnApproveStatus.rank()
		}
	}

	if quorumStages > 1 {
		return fmt.Errorf("%w: variant %s has %d quorum stages", ErrConfiguration, def.Variant, quorumStages)
	}

	final := def.Stages[len(def.Stages)-1]
	if final.Quorum {
		return fmt.Errorf("%w: variant %s final stage cannot be a quorum stage", ErrConfiguration, def.Variant)
	}
	if final.OnApproveStatus != "" {
		return fmt.Errorf("%w: variant %s final stage always releases", ErrConfiguration, def.Variant)
	}

	return nil
}
