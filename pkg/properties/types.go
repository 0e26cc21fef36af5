package properties

import (
	"slices"
	"strings"
	"time"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
)

// Type is the kind of real estate
type Type string

const (
	TypeHouse      Type = "HOUSE"
	TypeApartment  Type = "APARTMENT"
	TypeCondo      Type = "CONDO"
	TypeTownhouse  Type = "TOWNHOUSE"
	TypeLand       Type = "LAND"
	TypeCommercial Type = "COMMERCIAL"
)

// ListingType says whether a property is offered for sale or rent
type ListingType string

const (
	ListingSale ListingType = "SALE"
	ListingRent ListingType = "RENT"
)

// Status is the listing state of a property
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusPending   Status = "PENDING"
	StatusSold      Status = "SOLD"
	StatusRented    Status = "RENTED"
	StatusOffMarket Status = "OFF_MARKET"
)

var (
	validTypes        = []Type{TypeHouse, TypeApartment, TypeCondo, TypeTownhouse, TypeLand, TypeCommercial}
	validListingTypes = []ListingType{ListingSale, ListingRent}
	validStatuses     = []Status{StatusAvailable, StatusPending, StatusSold, StatusRented, StatusOffMarket}
)

// Property is a listing owned by a tenant and held by an agent
type Property struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        Type        `json:"type"`
	ListingType ListingType `json:"listingType"`
	Status      Status      `json:"status"`
	Price       float64     `json:"price"`
	Area        *float64    `json:"area,omitempty"`
	Bedrooms    *int        `json:"bedrooms,omitempty"`
	Bathrooms   *int        `json:"bathrooms,omitempty"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state,omitempty"`
	ZipCode     string      `json:"zipCode,omitempty"`
	Country     string      `json:"country,omitempty"`
	Features    []string    `json:"features,omitempty"`
	Images      []string    `json:"images,omitempty"`
	AgentID     string      `json:"agentId"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (p *Property) GetID() string { return p.ID }
func (p *Property) GetTenantID() string { return p.TenantID }
func (p *Property) GetCreatedAt() time.Time { return p.CreatedAt }
func (p *Property) GetUpdatedAt() time.Time { return p.UpdatedAt }

// SetIdentity implements resource.Entity
func (p *Property) SetIdentity(id, tenantID string) {
	p.ID = id
	p.TenantID = tenantID
}

// SetTimestamps implements resource.Entity
func (p *Property) SetTimestamps(createdAt, updatedAt time.Time) {
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
}

// CreatePropertyRequest is the body of a property create call.
// An empty AgentID assigns the listing to the caller.
type CreatePropertyRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        Type        `json:"type"`
	ListingType ListingType `json:"listingType"`
	Status      Status      `json:"status,omitempty"`
	Price       float64     `json:"price"`
	Area        *float64    `json:"area,omitempty"`
	Bedrooms    *int        `json:"bedrooms,omitempty"`
	Bathrooms   *int        `json:"bathrooms,omitempty"`
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state,omitempty"`
	ZipCode     string      `json:"zipCode,omitempty"`
	Country     string      `json:"country,omitempty"`
	Features    []string    `json:"features,omitempty"`
	Images      []string    `json:"images,omitempty"`
	AgentID     string      `json:"agentId,omitempty"`
	TenantID    string      `json:"tenantId,omitempty"`
}

// Property builds the record described by the request. TenantID is dropped.
func (r CreatePropertyRequest) Property() *Property {
	p := &Property{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Type:        Type(strings.ToUpper(string(r.Type))),
		ListingType: ListingType(strings.ToUpper(string(r.ListingType))),
		Status:      Status(strings.ToUpper(string(r.Status))),
		Price:       r.Price,
		Area:        r.Area,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		Address:     strings.TrimSpace(r.Address),
		City:        strings.TrimSpace(r.City),
		State:       r.State,
		ZipCode:     r.ZipCode,
		Country:     r.Country,
		Features:    r.Features,
		Images:      r.Images,
		AgentID:     r.AgentID,
	}
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	return p
}

// PropertyPatch lists the fields an update may change. A nil field is left unchanged.
type PropertyPatch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Type        *Type        `json:"type,omitempty"`
	ListingType *ListingType `json:"listingType,omitempty"`
	Status      *Status      `json:"status,omitempty"`
	Price       *float64     `json:"price,omitempty"`
	Area        *float64     `json:"area,omitempty"`
	Bedrooms    *int         `json:"bedrooms,omitempty"`
	Bathrooms   *int         `json:"bathrooms,omitempty"`
	Address     *string      `json:"address,omitempty"`
	City        *string      `json:"city,omitempty"`
	State       *string      `json:"state,omitempty"`
	ZipCode     *string      `json:"zipCode,omitempty"`
	Country     *string      `json:"country,omitempty"`
	Features    *[]string    `json:"features,omitempty"`
	Images      *[]string    `json:"images,omitempty"`
	AgentID     *string      `json:"agentId,omitempty"`
}

// Validate implements resource.Patch
func (p *PropertyPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperrors.Validation("title must not be empty")
	}
	if p.Type != nil && !slices.Contains(validTypes, Type(strings.ToUpper(string(*p.Type)))) {
		return apperrors.Validation("invalid type %q", string(*p.Type))
	}
	if p.ListingType != nil && !slices.Contains(validListingTypes, ListingType(strings.ToUpper(string(*p.ListingType)))) {
		return apperrors.Validation("invalid listingType %q", string(*p.ListingType))
	}
	if p.Status != nil && !slices.Contains(validStatuses, Status(strings.ToUpper(string(*p.Status)))) {
		return apperrors.Validation("invalid status %q", string(*p.Status))
	}
	if p.Price != nil && *p.Price < 0 {
		return apperrors.Validation("price must not be negative")
	}
	if p.Area != nil && *p.Area <= 0 {
		return apperrors.Validation("area must be positive")
	}
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		return apperrors.Validation("bedrooms must not be negative")
	}
	if p.Bathrooms != nil && *p.Bathrooms < 0 {
		return apperrors.Validation("bathrooms must not be negative")
	}
	if p.Address != nil && strings.TrimSpace(*p.Address) == "" {
		return apperrors.Validation("address must not be empty")
	}
	if p.City != nil && strings.TrimSpace(*p.City) == "" {
		return apperrors.Validation("city must not be empty")
	}
	if p.AgentID != nil && strings.TrimSpace(*p.AgentID) == "" {
		return apperrors.Validation("agentId must not be empty")
	}
	if len(p.Fields()) == 0 {
		return apperrors.Validation("no fields to update")
	}
	return nil
}

// Apply implements resource.Patch
func (p *PropertyPatch) Apply(prop *Property) {
	if p.Title != nil {
		prop.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		prop.Description = *p.Description
	}
	if p.Type != nil {
		prop.Type = Type(strings.ToUpper(string(*p.Type)))
	}
	if p.ListingType != nil {
		prop.ListingType = ListingType(strings.ToUpper(string(*p.ListingType)))
	}
	if p.Status != nil {
		prop.Status = Status(strings.ToUpper(string(*p.Status)))
	}
	if p.Price != nil {
		prop.Price = *p.Price
	}
	if p.Area != nil {
		area := *p.Area
		prop.Area = &area
	}
	if p.Bedrooms != nil {
		n := *p.Bedrooms
		prop.Bedrooms = &n
	}
	if p.Bathrooms != nil {
		n := *p.Bathrooms
		prop.Bathrooms = &n
	}
	if p.Address != nil {
		prop.Address = strings.TrimSpace(*p.Address)
	}
	if p.City != nil {
		prop.City = strings.TrimSpace(*p.City)
	}
	if p.State != nil {
		prop.State = *p.State
	}
	if p.ZipCode != nil {
		prop.ZipCode = *p.ZipCode
	}
	if p.Country != nil {
		prop.Country = *p.Country
	}
	if p.Features != nil {
		prop.Features = append([]string(nil), (*p.Features)...)
	}
	if p.Images != nil {
		prop.Images = append([]string(nil), (*p.Images)...)
	}
	if p.AgentID != nil {
		prop.AgentID = *p.AgentID
	}
}

// AffectsRole implements resource.Patch. Reassigning the listing agent changes
// the role the property is held at.
func (p *PropertyPatch) AffectsRole() bool {
	return p.AgentID != nil
}

// Fields implements resource.Patch
func (p *PropertyPatch) Fields() []string {
	set := []struct {
		name string
		ok   bool
	}{
		{"title", p.Title != nil},
		{"description", p.Description != nil},
		{"type", p.Type != nil},
		{"listingType", p.ListingType != nil},
		{"status", p.Status != nil},
		{"price", p.Price != nil},
		{"area", p.Area != nil},
		{"bedrooms", p.Bedrooms != nil},
		{"bathrooms", p.Bathrooms != nil},
		{"address", p.Address != nil},
		{"city", p.City != nil},
		{"state", p.State != nil},
		{"zipCode", p.ZipCode != nil},
		{"country", p.Country != nil},
		{"features", p.Features != nil},
		{"images", p.Images != nil},
		{"agentId", p.AgentID != nil},
	}
	var fields []string
	for _, f := range set {
		if f.ok {
			fields = append(fields, f.name)
		}
	}
	return fields
}

func validateProperty(p *Property) error {
	if p.Title == "" {
		return apperrors.Validation("title is required")
	}
	if !slices.Contains(validTypes, p.Type) {
		return apperrors.Validation("invalid type %q", string(p.Type))
	}
	if !slices.Contains(validListingTypes, p.ListingType) {
		return apperrors.Validation("invalid listingType %q", string(p.ListingType))
	}
	if !slices.Contains(validStatuses, p.Status) {
		return apperrors.Validation("invalid status %q", string(p.Status))
	}
	if p.Price < 0 {
		return apperrors.Validation("price must not be negative")
	}
	if p.Area != nil && *p.Area <= 0 {
		return apperrors.Validation("area must be positive")
	}
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		return apperrors.Validation("bedrooms must not be negative")
	}
	if p.Bathrooms != nil && *p.Bathrooms < 0 {
		return apperrors.Validation("bathrooms must not be negative")
	}
	if p.Address == "" || p.City == "" {
		return apperrors.Validation("address and city are required")
	}
	if p.AgentID == "" {
		return apperrors.Validation("agentId is required")
	}
	return nil
}
