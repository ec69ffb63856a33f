package models

// Merge field names. This is a closed registry: the builder, scorer, and
// manual-override validation all reject names outside it.
const (
	FieldTaxNumber           = "tax_number"
	FieldCompanyName         = "company_name"
	FieldCompanyNameAr       = "company_name_ar"
	FieldCountry             = "country"
	FieldCity                = "city"
	FieldStreet              = "street"
	FieldBuilding            = "building"
	FieldEmail               = "email"
	FieldPhone               = "phone"
	FieldSalesOrg            = "sales_org"
	FieldDistributionChannel = "distribution_channel"
	FieldDivision            = "division"
)

// MergeFields lists every field the builder fills, in a stable order.
var MergeFields = []string{
	FieldTaxNumber,
	FieldCompanyName,
	FieldCompanyNameAr,
	FieldCountry,
	FieldCity,
	FieldStreet,
	FieldBuilding,
	FieldEmail,
	FieldPhone,
	FieldSalesOrg,
	FieldDistributionChannel,
	FieldDivision,
}

// RequiredMasterFields must be non-empty before a master can be submitted.
var RequiredMasterFields = []string{
	FieldTaxNumber,
	FieldCompanyName,
	FieldCompanyNameAr,
}

// IsMergeField reports whether name belongs to the merge field registry.
func IsMergeField(name string) bool {
	for _, f := range MergeFields {
		if f == name {
			return true
		}
	}
	return false
}
