package models

import (
	"strings"
	"time"

	"rctrack/pkg/domain"
	dErrors "rctrack/pkg/domain-errors"
)

// Validation reasons carried by validation_error responses.
const (
	ReasonMissingField          dErrors.Reason = "missing_field"
	ReasonDuplicateRegistration dErrors.Reason = "duplicate_registration"
	ReasonMalformedStatus       dErrors.Reason = "malformed_status"
	ReasonInvalidDocument       dErrors.Reason = "invalid_document"
)

// Entry is one vehicle RC transfer case.
//
// Invariants:
//   - VehicleRegNo is unique across all entries (enforced by the store)
//   - CreatedBy and CreatedAt are set once at creation and never change
//   - PDFURL, when set, names exactly one live object in the attachment store
type Entry struct {
	ID domain.EntryID `json:"id"`
	Details
	Status    Status        `json:"status"`
	PDFURL    *string       `json:"pdfUrl"`
	CreatedBy domain.UserID `json:"createdBy"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Details holds the descriptive fields of a case.
type Details struct {
	VehicleName    string `json:"vehicleName"`
	VehicleRegNo   string `json:"vehicleRegNo"`
	OwnerName      string `json:"ownerName"`
	OwnerPhone     string `json:"ownerPhone"`
	ApplicantName  string `json:"applicantName"`
	ApplicantPhone string `json:"applicantPhone"`
	Work           string `json:"work"`
	DealerName     string `json:"dealerName"`
	RTOAgentName   string `json:"rtoAgentName"`
	Remarks        string `json:"remarks"`
}

// Status is the fixed set of progress flags. Flags are independent of each other.
type Status struct {
	RCTransferred    bool `json:"rcTransferred"`
	RTOFeesPaid      bool `json:"rtoFeesPaid"`
	ReturnedToDealer bool `json:"returnedToDealer"`
}

// HasDocument reports whether a document is attached.
func (e *Entry) HasDocument() bool {
	return e.PDFURL != nil && *e.PDFURL != ""
}

// NormalizeRegNo canonicalises a registration number for uniqueness checks.
func NormalizeRegNo(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Normalize trims every field and canonicalises the registration number.
func (d *Details) Normalize() {
	d.VehicleName = strings.TrimSpace(d.VehicleName)
	d.VehicleRegNo = NormalizeRegNo(d.VehicleRegNo)
	d.OwnerName = strings.TrimSpace(d.OwnerName)
	d.OwnerPhone = strings.TrimSpace(d.OwnerPhone)
	d.ApplicantName = strings.TrimSpace(d.ApplicantName)
	d.ApplicantPhone = strings.TrimSpace(d.ApplicantPhone)
	d.Work = strings.TrimSpace(d.Work)
	d.DealerName = strings.TrimSpace(d.DealerName)
	d.RTOAgentName = strings.TrimSpace(d.RTOAgentName)
	d.Remarks = strings.TrimSpace(d.Remarks)
}

// Validate checks that every required field is present.
func (d *Details) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"vehicleName", d.VehicleName},
		{"vehicleRegNo", d.VehicleRegNo},
		{"ownerName", d.OwnerName},
		{"ownerPhone", d.OwnerPhone},
		{"applicantName", d.ApplicantName},
		{"applicantPhone", d.ApplicantPhone},
		{"work", d.Work},
	}
	for _, f := range required {
		if f.value == "" {
			return MissingField(f.name)
		}
	}
	return nil
}

// MissingField builds the validation error for an absent required field.
func MissingField(name string) error {
	return dErrors.NewWithReason(dErrors.CodeValidation, ReasonMissingField, name+" is required")
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	VehicleName    *string
	VehicleRegNo   *string
	OwnerName      *string
	OwnerPhone     *string
	ApplicantName  *string
	ApplicantPhone *string
	Work           *string
	DealerName     *string
	RTOAgentName   *string
	Remarks        *string

	RCTransferred    *bool
	RTOFeesPaid      *bool
	ReturnedToDealer *bool

	// PDFURL is only set by attachment operations.
	PDFURL *string
}

// IsEmpty reports whether the patch changes nothing.
func (p *Patch) IsEmpty() bool {
	return p.VehicleName == nil && p.VehicleRegNo == nil && p.OwnerName == nil &&
		p.OwnerPhone == nil && p.ApplicantName == nil && p.ApplicantPhone == nil &&
		p.Work == nil && p.DealerName == nil && p.RTOAgentName == nil && p.Remarks == nil &&
		p.RCTransferred == nil && p.RTOFeesPaid == nil && p.ReturnedToDealer == nil &&
		p.PDFURL == nil
}

// Normalize trims present string fields and canonicalises the registration number.
func (p *Patch) Normalize() {
	for _, f := range []*string{
		p.VehicleName, p.OwnerName, p.OwnerPhone, p.ApplicantName, p.ApplicantPhone,
		p.Work, p.DealerName, p.RTOAgentName, p.Remarks,
	} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if p.VehicleRegNo != nil {
		*p.VehicleRegNo = NormalizeRegNo(*p.VehicleRegNo)
	}
}

// Validate rejects clearing a required field.
func (p *Patch) Validate() error {
	required := []struct {
		name  string
		value *string
	}{
		{"vehicleName", p.VehicleName},
		{"vehicleRegNo", p.VehicleRegNo},
		{"ownerName", p.OwnerName},
		{"ownerPhone", p.OwnerPhone},
		{"applicantName", p.ApplicantName},
		{"applicantPhone", p.ApplicantPhone},
		{"work", p.Work},
	}
	for _, f := range required {
		if f.value != nil && *f.value == "" {
			return MissingField(f.name)
		}
	}
	return nil
}

// Apply copies the present patch fields onto e. ID, CreatedBy and CreatedAt are
// not representable in a Patch and stay as they are.
func (e *Entry) Apply(p Patch) {
	setString(&e.VehicleName, p.VehicleName)
	setString(&e.VehicleRegNo, p.VehicleRegNo)
	setString(&e.OwnerName, p.OwnerName)
	setString(&e.OwnerPhone, p.OwnerPhone)
	setString(&e.ApplicantName, p.ApplicantName)
	setString(&e.ApplicantPhone, p.ApplicantPhone)
	setString(&e.Work, p.Work)
	setString(&e.DealerName, p.DealerName)
	setString(&e.RTOAgentName, p.RTOAgentName)
	setString(&e.Remarks, p.Remarks)

	setBool(&e.Status.RCTransferred, p.RCTransferred)
	setBool(&e.Status.RTOFeesPaid, p.RTOFeesPaid)
	setBool(&e.Status.ReturnedToDealer, p.ReturnedToDealer)

	if p.PDFURL != nil {
		url := *p.PDFURL
		e.PDFURL = &url
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Filter narrows FindAll. A nil CreatedBy matches every entry.
type Filter struct {
	CreatedBy *domain.UserID
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e *Entry) bool {
	return f.CreatedBy == nil || e.CreatedBy == *f.CreatedBy
}

// OwnedBy is the filter for one creator's entries.
func OwnedBy(id domain.UserID) Filter {
	return Filter{CreatedBy: &id}
}
