package handler

import (
	"rctrack/internal/rc/models"
	"rctrack/internal/rc/service"
)

// StatusRequest carries the optional progress flags. Each flag accepts the
// boolean-like encodings FlexBool understands.
type StatusRequest struct {
	RCTransferred    *models.FlexBool `json:"rcTransferred"`
	RTOFeesPaid      *models.FlexBool `json:"rtoFeesPaid"`
	ReturnedToDealer *models.FlexBool `json:"returnedToDealer"`
}

// CreateRequest is the body of POST /rc. Client-supplied id, createdBy,
// createdAt and pdfUrl are not part of the shape and are dropped by the decoder.
type CreateRequest struct {
	models.Details
	Status *StatusRequest `json:"status"`
}

func (r *CreateRequest) Normalize() {
	r.Details.Normalize()
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	return r.Details.Validate()
}

// Input converts the request into the service input. Absent flags default to false.
func (r *CreateRequest) Input() service.CreateInput {
	in := service.CreateInput{Details: r.Details}
	if r.Status != nil {
		in.Status = models.Status{
			RCTransferred:    flag(r.Status.RCTransferred),
			RTOFeesPaid:      flag(r.Status.RTOFeesPaid),
			ReturnedToDealer: flag(r.Status.ReturnedToDealer),
		}
	}
	return in
}

// UpdateRequest is the body of PUT /rc/{id}. Every field is optional. Status flags
// may be sent nested under "status" or at the top level; the nested value wins.
type UpdateRequest struct {
	VehicleName    *string `json:"vehicleName"`
	VehicleRegNo   *string `json:"vehicleRegNo"`
	OwnerName      *string `json:"ownerName"`
	OwnerPhone     *string `json:"ownerPhone"`
	ApplicantName  *string `json:"applicantName"`
	ApplicantPhone *string `json:"applicantPhone"`
	Work           *string `json:"work"`
	DealerName     *string `json:"dealerName"`
	RTOAgentName   *string `json:"rtoAgentName"`
	Remarks        *string `json:"remarks"`

	Status *StatusRequest `json:"status"`

	RCTransferred    *models.FlexBool `json:"rcTransferred"`
	RTOFeesPaid      *models.FlexBool `json:"rtoFeesPaid"`
	ReturnedToDealer *models.FlexBool `json:"returnedToDealer"`

	patch models.Patch
}

// Normalize builds the patch and trims it.
func (r *UpdateRequest) Normalize() {
	r.patch = models.Patch{
		VehicleName:    r.VehicleName,
		VehicleRegNo:   r.VehicleRegNo,
		OwnerName:      r.OwnerName,
		OwnerPhone:     r.OwnerPhone,
		ApplicantName:  r.ApplicantName,
		ApplicantPhone: r.ApplicantPhone,
		Work:           r.Work,
		DealerName:     r.DealerName,
		RTOAgentName:   r.RTOAgentName,
		Remarks:        r.Remarks,

		RCTransferred:    r.RCTransferred.Ptr(),
		RTOFeesPaid:      r.RTOFeesPaid.Ptr(),
		ReturnedToDealer: r.ReturnedToDealer.Ptr(),
	}
	if s := r.Status; s != nil {
		if v := s.RCTransferred.Ptr(); v != nil {
			r.patch.RCTransferred = v
		}
		if v := s.RTOFeesPaid.Ptr(); v != nil {
			r.patch.RTOFeesPaid = v
		}
		if v := s.ReturnedToDealer.Ptr(); v != nil {
			r.patch.ReturnedToDealer = v
		}
	}
	r.patch.Normalize()
}

// Validate implements httputil.Validatable. Field rules depend on the target
// entry and are enforced by the service after it is loaded and authorized.
func (r *UpdateRequest) Validate() error {
	return nil
}

// Patch returns the normalized patch built by Normalize.
func (r *UpdateRequest) Patch() models.Patch {
	return r.patch
}

func flag(b *models.FlexBool) bool {
	return b != nil && b.Bool()
}
