package workflow

// Variant names a workflow variant. The set is closed.
type Variant string

const (
	VariantStandard Variant = "STANDARD"
	VariantGSO      Variant = "GSO"
	VariantHR       Variant = "HR"
)

// Variants lists every known variant in a stable order
var Variants = []Variant{VariantStandard, VariantGSO, VariantHR}

// IsValid returns true for a known variant
func (v Variant) IsValid() bool {
	switch v {
	case VariantStandard, VariantGSO, VariantHR:
		return true
	default:
		return false
	}
}

// String returns the string representation of the variant
func (v Variant) String() string {
	return string(v)
}

// Role is an organizational role
type Role string

const (
	RoleRequester      Role = "REQUESTER"
	RoleGSO            Role = "GSO"
	RoleHR             Role = "HR"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
	RoleMayor          Role = "MAYOR"
	RoleBACMember      Role = "BAC_MEMBER"
	RoleBudget         Role = "BUDGET"
	RoleAccounting     Role = "ACCOUNTING"
	RoleTreasury       Role = "TREASURY"
	RoleAdmin          Role = "ADMIN"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleRequester, RoleGSO, RoleHR, RoleDepartmentHead, RoleMayor,
		RoleBACMember, RoleBudget, RoleAccounting, RoleTreasury, RoleAdmin:
		return true
	default:
		return false
	}
}

// Stage is one numbered step of a variant
type Stage struct {
	Number int    `mapstructure:"number" json:"number"`
	Role   Role   `mapstructure:"role" json:"role"`
	Label  string `mapstructure:"label" json:"label"`
	Quorum bool   `mapstructure:"quorum" json:"quorum"`
	// OnApproveStatus is the intermediate status set when this stage is approved.
	// Empty keeps the current status.
	OnApproveStatus State `mapstructure:"on_approve_status" json:"on_approve_status,omitempty"`
}

// Definition is the ordered stage table of one variant
type Definition struct {
	Variant Variant `mapstructure:"variant" json:"variant"`
	Stages  []Stage `mapstructure:"stages" json:"stages"`
}

// Stage returns the stage with the given number
func (d *Definition) Stage(number int) (Stage, bool) {
	for _, s := range d.Stages {
		if s.Number == number {
			return s, true
		}
	}
	return Stage{}, false
}

// FinalStage returns the last stage number
func (d *Definition) FinalStage() int {
	if len(d.Stages) == 0 {
		return 0
	}
	return d.Stages[len(d.Stages)-1].Number
}

// QuorumStage returns the quorum stage, if the variant has one
func (d *Definition) QuorumStage() (Stage, bool) {
	for _, s := range d.Stages {
		if s.Quorum {
			return s, true
		}
	}
	return Stage{}, false
}

// NextStage returns the stage after number
func (d *Definition) NextStage(number int) (Stage, bool) {
	return d.Stage(number + 1)
}

// ActionableStatuses returns the statuses in which stage actions are accepted:
// PENDING plus any intermediate status the variant configures.
func (d *Definition) ActionableStatuses() map[State]bool {
	statuses := map[State]bool{StatePending: true}
	for _, s := range d.Stages {
		if s.OnApproveStatus != "" {
			statuses[s.OnApproveStatus] = true
		}
	}
	return statuses
}
