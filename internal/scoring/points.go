package scoring

import (
	"math"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

// Point values.
const (
	BasePoints        = 10.0
	CertificatePoints = 5.0
	SectionBonus      = 10.0
	MaxRenewableBonus = 15.0
)

// Rule computes the section-specific bonus for a sub-section's fields.
type Rule func(fields map[string]any) float64

type ruleKey struct {
	category model.Category
	name     string
}

// both grants SectionBonus when every check holds.
func both(checks ...func(map[string]any) bool) Rule {
	return func(fields map[string]any) float64 {
		for _, check := range checks {
			if !check(fields) {
				return 0
			}
		}
		return SectionBonus
	}
}

func has(path string) func(map[string]any) bool {
	return func(fields map[string]any) bool { return present(lookup(fields, path)) }
}

func hasItems(path string) func(map[string]any) bool {
	return func(fields map[string]any) bool { return nonEmptyArray(lookup(fields, path)) }
}

func renewableBonus(fields map[string]any) float64 {
	n, ok := parseNumber(fields["value"])
	if !ok {
		return 0
	}
	return math.Max(0, math.Min(n/10, MaxRenewableBonus))
}

// rules holds the sub-sections that earn more than base and certificate
// points. Sub-sections not listed get no bonus.
var rules = map[ruleKey]Rule{
	{model.CategoryEnvironment, "renewableEnergy"}:      renewableBonus,
	{model.CategoryEnvironment, "waterConsumption"}:     both(has("targets"), has("progress")),
	{model.CategoryEnvironment, "rainwaterHarvesting"}:  both(has("volume"), has("infrastructure")),
	{model.CategoryEnvironment, "emissionControl"}:      both(has("chemicalManagement"), hasItems("disposalMethods")),
	{model.CategoryEnvironment, "resourceConservation"}: both(has("wasteDiversion"), hasItems("certifications")),
	{model.CategorySocial, "occupationalSafety"}:        both(has("ltifr"), hasItems("safetyTraining.programs")),
	{model.CategorySocial, "hrManagement"}:              both(has("humanRightsPolicy"), has("diversity.leadershipPercentage")),
	{model.CategorySocial, "csrSocialResponsibilities"}: both(hasItems("csrProjects"), hasItems("communityInvestment.initiatives")),
}

// RuleFor returns the bonus rule of a sub-section, or nil when it has none.
func RuleFor(c model.Category, name string) Rule {
	return rules[ruleKey{c, name}]
}

// Points computes a sub-section's point value from its data: base points when
// any field is filled, the certificate bonus, and the section bonus. The
// result replaces any previous value.
func Points(c model.Category, name string, fields map[string]any) float64 {
	if !present(fields) {
		return 0
	}
	pts := BasePoints

	certKey := registry.CertificateKey
	if c == model.CategoryCompanyInfo {
		certKey = registry.CompanyInfo().Certificate
	}
	if present(fields[certKey]) {
		pts += CertificatePoints
	}
	if rule := RuleFor(c, name); rule != nil {
		pts += rule(fields)
	}
	return pts
}
