// Package region holds the ISO-3166 lookups the pipeline needs: code to
// display name, free-text country normalization, and the African region
// sets used to geography-qualify search queries.
package region

import "strings"

// iso2Names maps alpha-2 codes to display names. African countries are
// complete; elsewhere the table carries the economies that show up in
// competitor data.
var iso2Names = map[string]string{
	"DZ": "Algeria", "AO": "Angola", "BJ": "Benin", "BW": "Botswana",
	"BF": "Burkina Faso", "BI": "Burundi", "CM": "Cameroon",
	"CV": "Cape Verde", "CF": "Central African Republic", "TD": "Chad",
	"KM": "Comoros", "CG": "Republic of the Congo",
	"CD": "Democratic Republic of the Congo", "CI": "Ivory Coast",
	"DJ": "Djibouti", "EG": "Egypt", "GQ": "Equatorial Guinea",
	"ER": "Eritrea", "SZ": "Eswatini", "ET": "Ethiopia", "GA": "Gabon",
	"GM": "Gambia", "GH": "Ghana", "GN": "Guinea", "GW": "Guinea-Bissau",
	"KE": "Kenya", "LS": "Lesotho", "LR": "Liberia", "LY": "Libya",
	"MG": "Madagascar", "MW": "Malawi", "ML": "Mali", "MR": "Mauritania",
	"MU": "Mauritius", "MA": "Morocco", "MZ": "Mozambique", "NA": "Namibia",
	"NE": "Niger", "NG": "Nigeria", "RW": "Rwanda",
	"ST": "Sao Tome and Principe", "SN": "Senegal", "SC": "Seychelles",
	"SL": "Sierra Leone", "SO": "Somalia", "ZA": "South Africa",
	"SS": "South Sudan", "SD": "Sudan", "TZ": "Tanzania", "TG": "Togo",
	"TN": "Tunisia", "UG": "Uganda", "ZM": "Zambia", "ZW": "Zimbabwe",

	"US": "United States", "GB": "United Kingdom", "FR": "France",
	"DE": "Germany", "NL": "Netherlands", "ES": "Spain", "PT": "Portugal",
	"IT": "Italy", "SE": "Sweden", "CH": "Switzerland",
	"AE": "United Arab Emirates", "SA": "Saudi Arabia", "IL": "Israel",
	"TR": "Turkey", "IN": "India", "CN": "China", "JP": "Japan",
	"KR": "South Korea", "SG": "Singapore", "ID": "Indonesia",
	"PH": "Philippines", "PK": "Pakistan", "BD": "Bangladesh",
	"BR": "Brazil", "MX": "Mexico", "AR": "Argentina", "CO": "Colombia",
	"CL": "Chile", "CA": "Canada", "AU": "Australia", "NZ": "New Zealand",
}

var alpha3ToISO2 = map[string]string{
	"DZA": "DZ", "AGO": "AO", "BEN": "BJ", "BWA": "BW", "BFA": "BF",
	"BDI": "BI", "CMR": "CM", "CPV": "CV", "CAF": "CF", "TCD": "TD",
	"COM": "KM", "COG": "CG", "COD": "CD", "CIV": "CI", "DJI": "DJ",
	"EGY": "EG", "GNQ": "GQ", "ERI": "ER", "SWZ": "SZ", "ETH": "ET",
	"GAB": "GA", "GMB": "GM", "GHA": "GH", "GIN": "GN", "GNB": "GW",
	"KEN": "KE", "LSO": "LS", "LBR": "LR", "LBY": "LY", "MDG": "MG",
	"MWI": "MW", "MLI": "ML", "MRT": "MR", "MUS": "MU", "MAR": "MA",
	"MOZ": "MZ", "NAM": "NA", "NER": "NE", "NGA": "NG", "RWA": "RW",
	"STP": "ST", "SEN": "SN", "SYC": "SC", "SLE": "SL", "SOM": "SO",
	"ZAF": "ZA", "SSD": "SS", "SDN": "SD", "TZA": "TZ", "TGO": "TG",
	"TUN": "TN", "UGA": "UG", "ZMB": "ZM", "ZWE": "ZW",

	"USA": "US", "GBR": "GB", "FRA": "FR", "DEU": "DE", "NLD": "NL",
	"ESP": "ES", "PRT": "PT", "ITA": "IT", "SWE": "SE", "CHE": "CH",
	"ARE": "AE", "SAU": "SA", "ISR": "IL", "TUR": "TR", "IND": "IN",
	"CHN": "CN", "JPN": "JP", "KOR": "KR", "SGP": "SG", "IDN": "ID",
	"PHL": "PH", "PAK": "PK", "BGD": "BD", "BRA": "BR", "MEX": "MX",
	"ARG": "AR", "COL": "CO", "CHL": "CL", "CAN": "CA", "AUS": "AU",
	"NZL": "NZ",
}

// nameAliases covers spellings the canonical name table misses.
var nameAliases = map[string]string{
	"cote d'ivoire":                    "CI",
	"côte d'ivoire":                    "CI",
	"drc":                              "CD",
	"democratic republic of congo":     "CD",
	"congo":                            "CG",
	"uk":                               "GB",
	"great britain":                    "GB",
	"usa":                              "US",
	"united states of america":         "US",
	"america":                          "US",
	"uae":                              "AE",
	"swaziland":                        "SZ",
	"the gambia":                       "GM",
	"tanzania, united republic of":     "TZ",
	"korea":                            "KR",
	"republic of korea":                "KR",
	"são tomé and príncipe":            "ST",
	"republic of congo":                "CG",
	"democratic republic of the congo": "CD",
}

var nameToISO2 = func() map[string]string {
	m := make(map[string]string, len(iso2Names)+len(nameAliases))
	for code, name := range iso2Names {
		m[strings.ToLower(name)] = code
	}
	for alias, code := range nameAliases {
		m[alias] = code
	}
	return m
}()

var westAfrica = map[string]bool{
	"BJ": true, "BF": true, "CV": true, "CI": true, "GM": true, "GH": true,
	"GN": true, "GW": true, "LR": true, "ML": true, "MR": true, "NE": true,
	"NG": true, "SN": true, "SL": true, "TG": true,
}

var eastAfrica = map[string]bool{
	"BI": true, "KM": true, "DJ": true, "ER": true, "ET": true, "KE": true,
	"MG": true, "MW": true, "MU": true, "MZ": true, "RW": true, "SC": true,
	"SO": true, "SS": true, "TZ": true, "UG": true, "ZM": true, "ZW": true,
}

var africa = func() map[string]bool {
	m := map[string]bool{
		"DZ": true, "AO": true, "BW": true, "CM": true, "CF": true,
		"TD": true, "CG": true, "CD": true, "EG": true, "GQ": true,
		"SZ": true, "GA": true, "LS": true, "LY": true, "MA": true,
		"NA": true, "ST": true, "ZA": true, "SD": true, "TN": true,
	}
	for c := range westAfrica {
		m[c] = true
	}
	for c := range eastAfrica {
		m[c] = true
	}
	return m
}()

// Name returns the display name for an ISO2 code, or the uppercased code
// itself when unknown.
func Name(code string) string {
	up := strings.ToUpper(strings.TrimSpace(code))
	if name, ok := iso2Names[up]; ok {
		return name
	}
	return up
}

// ToISO2 normalizes a free-text country value to an uppercase alpha-2
// code. It accepts alpha-2 codes, alpha-3 codes, and country names
// (case-insensitive). Values it cannot resolve return "".
func ToISO2(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}

	switch len(v) {
	case 2:
		up := strings.ToUpper(v)
		if !isAlpha(up) {
			return ""
		}
		if up == "UK" {
			return "GB"
		}
		return up
	case 3:
		if isAlpha(v) {
			if code, ok := alpha3ToISO2[strings.ToUpper(v)]; ok {
				return code
			}
		}
	}

	if code, ok := nameToISO2[strings.ToLower(v)]; ok {
		return code
	}
	return ""
}

// WestAfrican reports whether code is a West African country.
func WestAfrican(code string) bool {
	return westAfrica[strings.ToUpper(code)]
}

// EastAfrican reports whether code is an East African country.
func EastAfrican(code string) bool {
	return eastAfrica[strings.ToUpper(code)]
}

// African reports whether code is an African country.
func African(code string) bool {
	return africa[strings.ToUpper(code)]
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
