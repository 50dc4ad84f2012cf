package claims

import (
	"strings"
	"testing"
)

func validDraft() *ClaimDraft {
	return &ClaimDraft{
		Patient: PatientInfo{
			FirstName:    "Jane",
			LastName:     "Doe",
			DateOfBirth:  "1985-06-15",
			MemberID:     "W883449464",
			Relationship: "self",
		},
		Insurance: InsuranceInfo{
			PayerID:   "9496",
			PayerName: "Example Health",
		},
		Provider: ProviderInfo{
			BillingNPI:         "1999999984",
			RenderingNPI:       "1999999992",
			TaxID:              "123456789",
			PlaceOfServiceCode: "11",
		},
		Diagnoses: []Diagnosis{
			{Priority: 2, Code: "E11.9"},
			{Priority: 1, Code: "M54.2"},
		},
		ServiceLines: []ServiceLine{
			{
				ProcedureCode:     "99213",
				Modifiers:         [4]string{"25", "", "", ""},
				Units:             1,
				Charge:            150.00,
				DateFrom:          "2025-01-05",
				DiagnosisPointers: []int{1, 2},
			},
		},
	}
}

func TestCompileChargeTotals(t *testing.T) {
	draft := validDraft()
	draft.ServiceLines = []ServiceLine{
		{ProcedureCode: "99213", Units: 1, Charge: 150.00, DateFrom: "2025-01-05", DiagnosisPointers: []int{1}},
		{ProcedureCode: "97110", Units: 3, Charge: 40.10, DateFrom: "2025-01-05", DiagnosisPointers: []int{1}},
	}

	doc, err := Compile(draft)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if got := doc.ClaimInformation.ServiceLines[0].ProfessionalService.LineItemChargeAmount; got != "150.00" {
		t.Errorf("line 1 charge = %q, want 150.00", got)
	}
	if got := doc.ClaimInformation.ServiceLines[1].ProfessionalService.LineItemChargeAmount; got != "120.30" {
		t.Errorf("line 2 charge = %q, want 120.30", got)
	}
	// 150.00 + 3*40.10 summed in cents, no float drift.
	if got := doc.ClaimInformation.ClaimChargeAmount; got != "270.30" {
		t.Errorf("claim charge = %q, want 270.30", got)
	}
}

func TestCompileDateNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
		nil_ bool
	}{
		{in: "2025-01-05", want: "20250105"},
		{in: "20250105", want: "20250105"},
		{in: "", nil_: true},
		{in: "2025-1-5", nil_: true},
		{in: "2025-01-0X", nil_: true},
	}
	for _, tt := range tests {
		got := normalizeDate(tt.in)
		if tt.nil_ {
			if got != nil {
				t.Errorf("normalizeDate(%q) = %q, want nil", tt.in, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("normalizeDate(%q) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompileIdenticalShapeFreshControlNumber(t *testing.T) {
	draft := validDraft()

	a, err := Compile(draft)
	if err != nil {
		t.Fatalf("first Compile: %v", err)
	}
	b, err := Compile(draft)
	if err != nil {
		t.Fatalf("second Compile: %v", err)
	}

	if a.ControlNumber == b.ControlNumber {
		t.Errorf("control numbers should differ across compiles, both %q", a.ControlNumber)
	}
	if len(a.ControlNumber) > 32 {
		t.Errorf("control number %q exceeds 32 chars", a.ControlNumber)
	}
	if !strings.HasPrefix(a.ControlNumber, "CLM") {
		t.Errorf("control number %q missing CLM prefix", a.ControlNumber)
	}
	if a.ClaimInformation.PatientControlNumber != a.ControlNumber[:20] {
		t.Errorf("patient control number %q is not a 20-char truncation of %q",
			a.ClaimInformation.PatientControlNumber, a.ControlNumber)
	}

	// Everything except the control numbers is deterministic.
	a.ControlNumber = ""
	b.ControlNumber = ""
	a.ClaimInformation.PatientControlNumber = ""
	b.ClaimInformation.PatientControlNumber = ""
	if a.ClaimInformation.ClaimChargeAmount != b.ClaimInformation.ClaimChargeAmount ||
		len(a.ClaimInformation.ServiceLines) != len(b.ClaimInformation.ServiceLines) ||
		a.Subscriber.MemberID != b.Subscriber.MemberID ||
		*a.Subscriber.DateOfBirth != *b.Subscriber.DateOfBirth {
		t.Error("compiled documents differ beyond control numbers")
	}
}

func TestCompileDiagnosisOrdering(t *testing.T) {
	doc, err := Compile(validDraft())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	codes := doc.ClaimInformation.HealthCareCodeInformation
	if len(codes) != 2 {
		t.Fatalf("got %d diagnosis codes, want 2", len(codes))
	}
	if codes[0].DiagnosisTypeCode != "ABK" || codes[0].DiagnosisCode != "M542" {
		t.Errorf("principal = %+v, want ABK/M542", codes[0])
	}
	if codes[1].DiagnosisTypeCode != "ABF" || codes[1].DiagnosisCode != "E119" {
		t.Errorf("secondary = %+v, want ABF/E119", codes[1])
	}
}

func TestCompileModifierCompaction(t *testing.T) {
	draft := validDraft()
	draft.ServiceLines[0].Modifiers = [4]string{"25", "", "59", ""}

	doc, err := Compile(draft)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	mods := doc.ClaimInformation.ServiceLines[0].ProfessionalService.ProcedureModifiers
	if len(mods) != 2 || mods[0] != "25" || mods[1] != "59" {
		t.Errorf("modifiers = %v, want [25 59]", mods)
	}
}

func TestCompileValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClaimDraft)
	}{
		{"missing payer", func(d *ClaimDraft) { d.Insurance.PayerID = "" }},
		{"missing member", func(d *ClaimDraft) { d.Patient.MemberID = "" }},
		{"missing billing NPI", func(d *ClaimDraft) { d.Provider.BillingNPI = "" }},
		{"no diagnoses", func(d *ClaimDraft) { d.Diagnoses = nil }},
		{"no service lines", func(d *ClaimDraft) { d.ServiceLines = nil }},
		{"gap in priorities", func(d *ClaimDraft) { d.Diagnoses[0].Priority = 3 }},
		{"duplicate priority", func(d *ClaimDraft) { d.Diagnoses[0].Priority = 1 }},
		{"zero charge", func(d *ClaimDraft) { d.ServiceLines[0].Charge = 0 }},
		{"zero units", func(d *ClaimDraft) { d.ServiceLines[0].Units = 0 }},
		{"no pointers", func(d *ClaimDraft) { d.ServiceLines[0].DiagnosisPointers = nil }},
		{"dangling pointer", func(d *ClaimDraft) { d.ServiceLines[0].DiagnosisPointers = []int{5} }},
		{"duplicate modifier", func(d *ClaimDraft) { d.ServiceLines[0].Modifiers = [4]string{"25", "25", "", ""} }},
		{"missing service date", func(d *ClaimDraft) { d.ServiceLines[0].DateFrom = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.mutate(draft)
			_, err := Compile(draft)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{15000, "150.00"},
		{12030, "120.30"},
		{5, "0.05"},
		{0, "0.00"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.cents); got != tt.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
