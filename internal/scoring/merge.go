package scoring

import (
	"maps"
	"time"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
)

// Patch is a caller-supplied partial update of one sub-section.
type Patch struct {
	Owner      model.Owner    `json:"owner"`
	Category   model.Category `json:"category"`
	Subsection string         `json:"subsection"`
	Data       map[string]any `json:"data"`
}

// Validate checks the patch against the registry and returns the targeted
// sub-section schema.
func (p Patch) Validate() (registry.Section, error) {
	if err := p.Owner.Validate(); err != nil {
		return registry.Section{}, err
	}
	if _, ok := model.ParseCategory(string(p.Category)); !ok {
		return registry.Section{}, model.InvalidInputf("scoring: unknown category %q", p.Category)
	}
	sec, err := registry.Lookup(p.Category, p.Subsection)
	if err != nil {
		return registry.Section{}, err
	}
	if p.Data == nil {
		return registry.Section{}, model.InvalidInputf("scoring: patch for %s.%s has no data", p.Category, sec.Name)
	}
	return sec, nil
}

// Merge applies p to rec and returns the updated record. A nil rec yields a
// new draft record seeded only with the patched sub-section; the caller
// assigns its identity. The merged sub-section gets a fresh lastUpdated and
// its points recomputed. Rejected patches leave rec untouched.
func Merge(rec *model.Record, p Patch, now time.Time) (*model.Record, error) {
	sec, err := p.Validate()
	if err != nil {
		return nil, err
	}
	data, err := normalize(p.Data)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		rec = model.NewRecord("", p.Owner, now)
	}

	target := subsectionFor(rec, sec)
	mergeFields(target, sec, data)
	target.LastUpdated = now
	target.Points = Points(sec.Category, sec.Name, target.Fields)
	rec.LastUpdated = now
	return rec, nil
}

// subsectionFor returns the stored sub-section for sec, creating it and its
// category mapping when absent.
func subsectionFor(rec *model.Record, sec registry.Section) *model.Subsection {
	if sec.Category == model.CategoryCompanyInfo {
		if rec.CompanyInfo == nil {
			rec.CompanyInfo = model.NewSubsection()
		}
		if rec.CompanyInfo.Fields == nil {
			rec.CompanyInfo.Fields = map[string]any{}
		}
		return rec.CompanyInfo
	}
	data := rec.EnsureCategory(sec.Category)
	s, ok := data[sec.Name]
	if !ok || s == nil {
		s = model.NewSubsection()
		data[sec.Name] = s
	}
	if s.Fields == nil {
		s.Fields = map[string]any{}
	}
	return s
}

// mergeFields overwrites top-level keys of dst with data. Nested optional
// objects are merged key-wise against the stored object; arrays and other
// values replace the stored value. Computed keys are ignored.
func mergeFields(dst *model.Subsection, sec registry.Section, data map[string]any) {
	for k, v := range data {
		switch k {
		case model.KeyPoints, model.KeyLastUpdated:
			continue
		case model.KeyRemarks:
			if s, ok := v.(string); ok {
				dst.Remarks = s
			}
			continue
		}

		f, known := sec.Field(k)
		incoming, isMap := v.(map[string]any)
		if known && f.Kind == registry.KindNestedOptional && isMap {
			prev, _ := dst.Fields[k].(map[string]any)
			merged := make(map[string]any, len(prev)+len(incoming))
			maps.Copy(merged, prev)
			maps.Copy(merged, incoming)
			dst.Fields[k] = merged
			continue
		}
		dst.Fields[k] = v
	}
}

// Override sets a sub-section's points and remarks directly, bypassing the
// point calculator. The sub-section is created when absent.
func Override(rec *model.Record, c model.Category, name string, points float64, remarks string, now time.Time) error {
	sec, err := registry.Lookup(c, name)
	if err != nil {
		return err
	}
	target := subsectionFor(rec, sec)
	target.Points = points
	target.Remarks = remarks
	target.LastUpdated = now
	rec.LastUpdated = now
	return nil
}
