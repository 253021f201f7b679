package model

// Subscriber is the customer metadata attached to a terminal. Discovery never
// writes it; it is maintained by the provisioning service.
type Subscriber struct {
	// Name is the customer display name
	Name string `json:"customer_name,omitempty"`

	// Phone is the contact phone number
	Phone string `json:"customer_phone,omitempty"`

	// Address is the installation address
	Address string `json:"customer_address,omitempty"`

	// ServicePlan is the commercial plan name (e.g. "100M-residential")
	ServicePlan string `json:"service_plan,omitempty"`

	// VLAN is the subscriber service VLAN ID, nil when unassigned
	VLAN *int `json:"vlan,omitempty"`

	// Description is a free-form note
	Description string `json:"description,omitempty"`
}

// IsEmpty reports whether no customer metadata has been recorded.
func (s Subscriber) IsEmpty() bool {
	return s.Name == "" && s.Phone == "" && s.Address == "" &&
		s.ServicePlan == "" && s.VLAN == nil && s.Description == ""
}

// SubscriberPatch updates a subset of customer metadata. Nil fields are left untouched.
type SubscriberPatch struct {
	Name        *string `json:"customer_name,omitempty"`
	Phone       *string `json:"customer_phone,omitempty"`
	Address     *string `json:"customer_address,omitempty"`
	ServicePlan *string `json:"service_plan,omitempty"`
	VLAN        *int    `json:"vlan,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply copies every supplied field onto s.
func (p SubscriberPatch) Apply(s *Subscriber) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.ServicePlan != nil {
		s.ServicePlan = *p.ServicePlan
	}
	if p.VLAN != nil {
		vlan := *p.VLAN
		s.VLAN = &vlan
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
}
