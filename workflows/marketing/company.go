package marketing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bububa/atomic-cookbook/schema"
)

// ErrInvalidCompanyInfo is returned when scraped company info fails validation
var ErrInvalidCompanyInfo = errors.New("invalid company info")

// CompanyInfo is what the scraper extracts from a company website
type CompanyInfo struct {
	schema.Base
	CompanyName        string `json:"company_name" jsonschema:"title=company_name,description=Name of the company." validate:"required"`
	Motto              string `json:"motto,omitempty" jsonschema:"title=motto,description=Company motto or tagline."`
	CoreBusiness       string `json:"core_business,omitempty" jsonschema:"title=core_business,description=Primary business of the company."`
	UniqueSellingPoint string `json:"unique_selling_point,omitempty" jsonschema:"title=unique_selling_point,description=What sets the company apart from its competitors."`
	EmailAddress       string `json:"email_address,omitempty" jsonschema:"title=email_address,description=Email address of the company." validate:"omitempty,email"`
}

// Validate checks the required fields
func (c *CompanyInfo) Validate() error {
	if err := schema.Validate(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCompanyInfo, err)
	}
	return nil
}

// IsEmpty reports whether nothing was scraped
func (c *CompanyInfo) IsEmpty() bool {
	return c == nil || *c == CompanyInfo{Base: c.Base}
}

// CompanyInfoToString describes the company in one sentence, omitting missing fields.
// fallbackEmail is used when the company has no email address.
func CompanyInfoToString(company *CompanyInfo, fallbackEmail string) string {
	parts := []string{company.CompanyName}
	if company.Motto != "" {
		parts = append(parts, fmt.Sprintf("whose motto is '%s'", company.Motto))
	}
	if company.CoreBusiness != "" {
		parts = append(parts, fmt.Sprintf("specializing in %s", company.CoreBusiness))
	}
	if company.UniqueSellingPoint != "" {
		parts = append(parts, fmt.Sprintf("known for %s", company.UniqueSellingPoint))
	}
	contactEmail := company.EmailAddress
	if contactEmail == "" {
		contactEmail = fallbackEmail
	}
	parts = append(parts, fmt.Sprintf("contactable at %s", contactEmail))
	return strings.Join(parts, ", ") + "."
}
