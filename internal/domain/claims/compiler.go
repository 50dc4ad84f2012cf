package claims

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// Diagnosis type codes for ICD-10 in the 837P document: the priority-1
	// diagnosis is coded principal, every other one secondary. Fixed business
	// rule, not configurable.
	diagnosisTypePrincipal = "ABK"
	diagnosisTypeSecondary = "ABF"

	controlNumberPrefix = "CLM"
	controlNumberMax    = 32
	patientControlMax   = 20

	procedureIdentifierHCPCS = "HC"
	measurementUnitUnits     = "UN"
	claimFrequencyOriginal   = "1"
)

// Compile transforms a claim draft into the canonical submission document.
// Pure and deterministic except for the freshly generated control number: two
// compiles of the same draft differ only in control numbers.
func Compile(draft *ClaimDraft) (*CanonicalClaimDocument, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	controlNumber := newControlNumber()
	patientControl := controlNumber
	if len(patientControl) > patientControlMax {
		patientControl = patientControl[:patientControlMax]
	}

	diagnoses := make([]Diagnosis, len(draft.Diagnoses))
	copy(diagnoses, draft.Diagnoses)
	sort.Slice(diagnoses, func(i, j int) bool { return diagnoses[i].Priority < diagnoses[j].Priority })

	codes := make([]HealthCareCode, 0, len(diagnoses))
	for _, d := range diagnoses {
		typeCode := diagnosisTypeSecondary
		if d.Priority == 1 {
			typeCode = diagnosisTypePrincipal
		}
		codes = append(codes, HealthCareCode{
			DiagnosisTypeCode: typeCode,
			DiagnosisCode:     stripPunctuation(d.Code),
		})
	}

	var totalCents int64
	lines := make([]CompiledLine, 0, len(draft.ServiceLines))
	for i, sl := range draft.ServiceLines {
		from := normalizeDate(sl.DateFrom)
		if from == nil {
			return nil, validationErrorf("service line %d: service date is required", i+1)
		}

		lineCents := chargeCents(sl.Charge) * int64(sl.Units)
		totalCents += lineCents

		lines = append(lines, CompiledLine{
			ServiceDate:    *from,
			ServiceDateEnd: normalizeDate(sl.DateTo),
			ProfessionalService: ProfessionalService{
				ProcedureIdentifier:  procedureIdentifierHCPCS,
				ProcedureCode:        sl.ProcedureCode,
				ProcedureModifiers:   compactModifiers(sl.Modifiers),
				LineItemChargeAmount: formatAmount(lineCents),
				MeasurementUnit:      measurementUnitUnits,
				ServiceUnitCount:     fmt.Sprintf("%d", sl.Units),
				CompositeDiagnosisCodePointers: DiagnosisPointers{
					DiagnosisCodePointers: append([]int(nil), sl.DiagnosisPointers...),
				},
			},
		})
	}

	var rendering *RenderingProvider
	if draft.Provider.RenderingNPI != "" {
		rendering = &RenderingProvider{NPI: draft.Provider.RenderingNPI}
	}

	doc := &CanonicalClaimDocument{
		ControlNumber:           controlNumber,
		TradingPartnerServiceID: draft.Insurance.PayerID,
		Subscriber: Subscriber{
			MemberID:     draft.Patient.MemberID,
			FirstName:    draft.Patient.FirstName,
			LastName:     draft.Patient.LastName,
			DateOfBirth:  normalizeDate(draft.Patient.DateOfBirth),
			Relationship: draft.Patient.Relationship,
		},
		Billing: BillingProvider{
			NPI:          draft.Provider.BillingNPI,
			EmployerID:   draft.Provider.TaxID,
			TaxonomyCode: draft.Provider.TaxonomyCode,
			FacilityName: draft.Provider.FacilityName,
		},
		Rendering: rendering,
		ClaimInformation: ClaimInformation{
			PatientControlNumber:      patientControl,
			ClaimChargeAmount:         formatAmount(totalCents),
			PlaceOfServiceCode:        draft.Provider.PlaceOfServiceCode,
			ClaimFrequencyCode:        claimFrequencyOriginal,
			PriorAuthorizationNumber:  draft.Insurance.PriorAuthNumber,
			HealthCareCodeInformation: codes,
			ServiceLines:              lines,
		},
	}
	return doc, nil
}

func validateDraft(draft *ClaimDraft) error {
	if draft.Insurance.PayerID == "" {
		return validationErrorf("payer id is required")
	}
	if draft.Patient.MemberID == "" {
		return validationErrorf("member id is required")
	}
	if draft.Provider.BillingNPI == "" {
		return validationErrorf("billing NPI is required")
	}
	if len(draft.Diagnoses) == 0 {
		return validationErrorf("at least one diagnosis is required")
	}
	if len(draft.ServiceLines) == 0 {
		return validationErrorf("at least one service line is required")
	}

	// Priorities must be contiguous starting at 1.
	priorities := make(map[int]bool, len(draft.Diagnoses))
	for _, d := range draft.Diagnoses {
		if priorities[d.Priority] {
			return validationErrorf("duplicate diagnosis priority %d", d.Priority)
		}
		priorities[d.Priority] = true
	}
	for p := 1; p <= len(draft.Diagnoses); p++ {
		if !priorities[p] {
			return validationErrorf("diagnosis priorities must be contiguous starting at 1; missing %d", p)
		}
	}

	for i, sl := range draft.ServiceLines {
		if sl.Charge <= 0 {
			return validationErrorf("service line %d: charge must be positive", i+1)
		}
		if sl.Units <= 0 {
			return validationErrorf("service line %d: unit count must be positive", i+1)
		}
		if len(sl.DiagnosisPointers) == 0 {
			return validationErrorf("service line %d: at least one diagnosis pointer is required", i+1)
		}
		for _, p := range sl.DiagnosisPointers {
			if !priorities[p] {
				return validationErrorf("service line %d: diagnosis pointer %d references no diagnosis", i+1, p)
			}
		}
		seen := make(map[string]bool, 4)
		for _, m := range sl.Modifiers {
			if m == "" {
				continue
			}
			if seen[m] {
				return validationErrorf("service line %d: duplicate modifier %s", i+1, m)
			}
			seen[m] = true
		}
	}
	return nil
}

// normalizeDate converts a UI date string (YYYY-MM-DD) to the 8-digit
// YYYYMMDD form. Missing or malformed input maps to nil, never an error.
func normalizeDate(s string) *string {
	stripped := strings.ReplaceAll(s, "-", "")
	if len(stripped) != 8 {
		return nil
	}
	for _, r := range stripped {
		if !unicode.IsDigit(r) {
			return nil
		}
	}
	return &stripped
}

// stripPunctuation removes everything but letters and digits from a diagnosis
// code ("M54.2" -> "M542") and uppercases it.
func stripPunctuation(code string) string {
	var b strings.Builder
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// compactModifiers drops empty slots from the fixed 4-slot modifier array.
func compactModifiers(mods [4]string) []string {
	var out []string
	for _, m := range mods {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// chargeCents converts a dollar amount to integer cents, rounding half away
// from zero. Totals are summed in cents so repeated lines cannot drift.
func chargeCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// formatAmount renders integer cents as a fixed 2-decimal string.
func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// newControlNumber generates the client-assigned correlation key: a prefixed
// random hex identifier truncated to 32 characters. The patient control
// number is a 20-character truncation of the same identifier so the two
// remain cross-correlatable.
func newControlNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	cn := controlNumberPrefix + strings.ToUpper(id)
	if len(cn) > controlNumberMax {
		cn = cn[:controlNumberMax]
	}
	return cn
}
