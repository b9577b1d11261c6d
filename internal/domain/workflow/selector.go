package workflow

// SelectVariant picks the workflow variant from the voucher's originating role.
// Unknown roles fall back to STANDARD.
func SelectVariant(originRole Role) Variant {
	switch originRole {
	case RoleGSO:
		return VariantGSO
	case RoleHR:
		return VariantHR
	default:
		return VariantStandard
	}
}
