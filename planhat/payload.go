package planhat

import (
	"time"

	"golang.org/x/text/language"
)

// ExternalIdPrefix is the convention Planhat uses to look up a company by its
// externalId when another record references it.
const ExternalIdPrefix = "extid-"

// isoMillis matches the JavaScript Date.toISOString shape: UTC, millisecond
// precision, trailing Z.
const isoMillis = "2006-01-02T15:04:05.000Z"

type CompanyCustom struct {
	CreationDate string  `json:"Workspace Creation Date"`
	DeletionDate *string `json:"Workspace Deletion Date"`
	CompanyName  string  `json:"Company Name"`
	CompanySize  int     `json:"Company Size"`
}

type CompanyPayload struct {
	Name       string        `json:"name"`
	ExternalId string        `json:"externalId"`
	Country    string        `json:"country"`
	City       string        `json:"city"`
	Zip        string        `json:"zip"`
	Address    string        `json:"address"`
	Custom     CompanyCustom `json:"custom"`
}

type EndUserCustom struct {
	Country            string  `json:"Country"`
	BrowserLanguage    string  `json:"Browser Language"`
	SignUpDate         string  `json:"User Sign Up Date"`
	DeletionDate       *string `json:"User deletion date"`
	EmailValidatedDate string  `json:"User Email Validated Date"`
}

type EndUserPayload struct {
	Email      string        `json:"email"`
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	CompanyId  string        `json:"companyId"`
	ExternalId string        `json:"externalId"`
	Position   string        `json:"position"`
	Phone      string        `json:"phone"`
	LastActive string        `json:"lastActive"`
	Custom     EndUserCustom `json:"custom"`
}

// CompanyRef builds the companyId value referencing an organization by its
// externalId.
func CompanyRef(orgId string) string {
	return ExternalIdPrefix + orgId
}

// MapOrganization converts an organization into its company upsert payload.
// Pure and total for well-formed input.
func MapOrganization(org *Organization) CompanyPayload {
	return CompanyPayload{
		Name:       org.Name,
		ExternalId: org.Id,
		Country:    org.Country,
		City:       org.City,
		Zip:        org.Zip,
		Address:    org.Address,
		Custom: CompanyCustom{
			CreationDate: isoFromMillis(org.CreatedAt),
			DeletionDate: isoOrNull(org.DeletedAt),
			CompanyName:  org.Company,
			CompanySize:  org.CompanySize,
		},
	}
}

// MapUser converts a user into the end-user upsert payload for one
// organization membership. A user in N organizations maps N times, the
// payloads differing only in CompanyId.
func MapUser(user *User, orgId string) EndUserPayload {
	return EndUserPayload{
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		CompanyId:  CompanyRef(orgId),
		ExternalId: user.Id,
		Position:   user.Position,
		Phone:      user.Phone,
		LastActive: isoFromMillis(user.LastActiveAt),
		Custom: EndUserCustom{
			Country:            user.Country,
			BrowserLanguage:    normalizeLanguageTag(user.BrowserLanguage),
			SignUpDate:         isoFromMillis(user.CreatedAt),
			DeletionDate:       isoOrNull(user.DeletedAt),
			EmailValidatedDate: isoFromMillis(user.EmailValidatedAt),
		},
	}
}

func isoFromMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

func isoOrNull(ms int64) *string {
	if ms == 0 {
		return nil
	}
	var s = isoFromMillis(ms)
	return &s
}

// normalizeLanguageTag canonicalizes a BCP 47 tag ("fr_FR" becomes "fr-FR").
// Unparseable input passes through untouched rather than dropping the field.
func normalizeLanguageTag(tag string) string {
	if len(tag) == 0 {
		return tag
	}
	if parsed, err := language.Parse(tag); err == nil {
		return parsed.String()
	}
	return tag
}
