package terminology

import (
	"fmt"
	"strings"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// fallbackDirectory holds a small static set of well-known clinical codes so
// the service degrades gracefully when the terminology server is unreachable.
// Every answer it produces is marked with ConceptSourceFallback.
type fallbackDirectory struct {
	displays     map[string]map[string]string
	translations map[string][]entities.CodedConcept
}

func defaultFallbackDirectory() *fallbackDirectory {
	return &fallbackDirectory{
		displays: map[string]map[string]string{
			entities.SystemSNOMED: {
				"38341003":  "Hypertensive disorder, systemic arterial",
				"44054006":  "Diabetes mellitus type 2",
				"195967001": "Asthma",
				"13645005":  "Chronic obstructive lung disease",
				"35489007":  "Depressive disorder",
				"49436004":  "Atrial fibrillation",
				"235595009": "Gastroesophageal reflux disease",
				"90708001":  "Kidney disease",
				"271737000": "Anemia",
				"396275006": "Osteoarthritis",
			},
			entities.SystemICD10: {
				"I10":  "Essential (primary) hypertension",
				"E11":  "Type 2 diabetes mellitus",
				"J45":  "Asthma",
				"J44":  "Other chronic obstructive pulmonary disease",
				"F32":  "Depressive episode",
				"I48":  "Atrial fibrillation and flutter",
				"K21":  "Gastro-oesophageal reflux disease",
				"N18":  "Chronic kidney disease",
				"D64":  "Other anaemias",
				"M19":  "Other arthrosis",
			},
			entities.SystemDMD: {
				"39720311000001101": "Amlodipine 5mg tablets",
				"320141001":         "Metformin 500mg tablets",
				"39113611000001102": "Salbutamol 100micrograms/dose inhaler",
				"322236009":         "Paracetamol 500mg tablets",
				"319773006":         "Ramipril 2.5mg capsules",
				"320000009":         "Simvastatin 40mg tablets",
			},
		},
		translations: map[string][]entities.CodedConcept{
			translationKey(entities.SystemSNOMED, "38341003", entities.SystemICD10): {
				{System: entities.SystemICD10, Code: "I10", Display: "Essential (primary) hypertension"},
			},
			translationKey(entities.SystemSNOMED, "44054006", entities.SystemICD10): {
				{System: entities.SystemICD10, Code: "E11", Display: "Type 2 diabetes mellitus"},
			},
			translationKey(entities.SystemSNOMED, "195967001", entities.SystemICD10): {
				{System: entities.SystemICD10, Code: "J45", Display: "Asthma"},
			},
			translationKey(entities.SystemSNOMED, "13645005", entities.SystemICD10): {
				{System: entities.SystemICD10, Code: "J44", Display: "Other chronic obstructive pulmonary disease"},
			},
			translationKey(entities.SystemSNOMED, "49436004", entities.SystemICD10): {
				{System: entities.SystemICD10, Code: "I48", Display: "Atrial fibrillation and flutter"},
			},
		},
	}
}

func translationKey(sourceSystem, code, targetSystem string) string {
	return fmt.Sprintf("%s|%s|%s", sourceSystem, code, targetSystem)
}

func (d *fallbackDirectory) lookup(system, code string) *entities.LookupResult {
	display, ok := d.displays[system][code]
	if !ok {
		return nil
	}
	return &entities.LookupResult{
		Concept: entities.CodedConcept{
			System:  system,
			Code:    code,
			Display: display,
			Source:  entities.ConceptSourceFallback,
		},
	}
}

func (d *fallbackDirectory) validate(system, code, display string) *entities.ValidationResult {
	known, ok := d.displays[system][code]
	if !ok {
		// Unknown to the static set is not proof of invalidity, so the
		// caller falls through to a hard error instead.
		return nil
	}
	result := &entities.ValidationResult{
		Valid:   true,
		Display: known,
		Source:  entities.ConceptSourceFallback,
	}
	if display != "" && !strings.EqualFold(display, known) {
		result.Message = fmt.Sprintf("display %q differs from known display %q", display, known)
	}
	return result
}

func (d *fallbackDirectory) expand(valueSet, filter string, count int) *entities.ExpansionResult {
	system := systemForValueSet(valueSet)
	codes, ok := d.displays[system]
	if !ok {
		return nil
	}

	result := &entities.ExpansionResult{
		ValueSet: valueSet,
		Source:   entities.ConceptSourceFallback,
	}
	for code, display := range codes {
		if filter != "" && !strings.Contains(strings.ToLower(display), strings.ToLower(filter)) {
			continue
		}
		result.Concepts = append(result.Concepts, entities.CodedConcept{
			System:  system,
			Code:    code,
			Display: display,
			Source:  entities.ConceptSourceFallback,
		})
		if len(result.Concepts) >= count {
			break
		}
	}
	result.Total = len(result.Concepts)
	if result.Total == 0 {
		return nil
	}
	return result
}

// systemForValueSet maps an implicit value set URL to the code system it
// draws from, e.g. "http://snomed.info/sct?fhir_vs" to SNOMED CT.
func systemForValueSet(valueSet string) string {
	for _, system := range []string{entities.SystemSNOMED, entities.SystemICD10, entities.SystemDMD} {
		if strings.HasPrefix(valueSet, system) {
			return system
		}
	}
	return valueSet
}

func (d *fallbackDirectory) translate(sourceSystem, code, targetSystem string) *entities.TranslationResult {
	targets, ok := d.translations[translationKey(sourceSystem, code, targetSystem)]
	if !ok {
		return nil
	}
	copied := make([]entities.CodedConcept, len(targets))
	for i, target := range targets {
		target.Source = entities.ConceptSourceFallback
		copied[i] = target
	}
	return &entities.TranslationResult{
		Matched: true,
		Targets: copied,
		Source:  entities.ConceptSourceFallback,
	}
}
