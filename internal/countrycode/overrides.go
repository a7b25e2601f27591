package countrycode

// builtinOverrides maps historical, alternate and non-English country names to
// ISO alpha-2 codes. Entries here win over the reference table.
var builtinOverrides = map[string]string{
	// Short and historical English names.
	"UK":                               "GB",
	"USA":                              "US",
	"United Kingdom":                   "GB",
	"United States":                    "US",
	"PRC":                              "CN",
	"Palestine":                        "PS",
	"Palestinian Territories":          "PS",
	"Occupied Palestine":               "PS",
	"Russia":                           "RU",
	"Russian Federation":               "RU",
	"Iran":                             "IR",
	"Iran, Islamic Rep.":               "IR",
	"Viet Nam":                         "VN",
	"Korea, South":                     "KR",
	"Korea, Rep.":                      "KR",
	"Korea, North":                     "KP",
	"Korea, Dem. People's Rep.":        "KP",
	"Syria":                            "SY",
	"Syrian Arab Republic":             "SY",
	"Tanzania":                         "TZ",
	"Tanzania, United Rep.":            "TZ",
	"Moldova":                          "MD",
	"Bolivia":                          "BO",
	"DRC":                              "CD",
	"Democratic Republic of the Congo": "CD",
	"Congo-Kinshasa":                   "CD",
	"Congo":                            "CG",
	"Republic of the Congo":            "CG",
	"Congo-Brazzaville":                "CG",
	"Czechia":                          "CZ",
	"Laos":                             "LA",
	"Lao PDR":                          "LA",
	"Brunei":                           "BN",
	"Cabo Verde":                       "CV",
	"Cape Verde":                       "CV",
	"Eswatini":                         "SZ",
	"Swaziland":                        "SZ",
	"Micronesia":                       "FM",
	"Saint Kitts and Nevis":            "KN",
	"Saint Lucia":                      "LC",
	"Saint Vincent and the Grenadines": "VC",
	"Sao Tome and Principe":            "ST",
	"Timor-Leste":                      "TL",
	"East Timor":                       "TL",
	"Ivory Coast":                      "CI",
	"North Macedonia":                  "MK",
	"Burma":                            "MM",
	"Vatican City":                     "VA",
	"The Gambia":                       "GM",
	"Gambia":                           "GM",
	"Bahamas":                          "BS",
	"Venezuela, RB":                    "VE",
	"Yemen, Rep.":                      "YE",
	"Somaliland":                       "SO",

	// Endonyms.
	"Deutschland":                      "DE",
	"España":                           "ES",
	"Italia":                           "IT",
	"Nippon":                           "JP",
	"Brasil":                           "BR",
	"México":                           "MX",
	"Türkiye":                          "TR",
	"Ελλάδα":                           "GR",
	"Sverige":                          "SE",
	"Suomi":                            "FI",
	"Nederland":                        "NL",
	"Polska":                           "PL",
	"Česká republika":                  "CZ",
	"Magyarország":                     "HU",
	"Österreich":                       "AT",
	"Schweiz":                          "CH",
	"Schweizerische Eidgenossenschaft": "CH",
	"Suisse":                           "CH",
	"Danmark":                          "DK",
	"Norge":                            "NO",
	"Ísland":                           "IS",
	"ประเทศไทย":                        "TH",
	"대한민국":                             "KR",
	"中华人民共和国":                          "CN",
	"Российская Федерация":             "RU",

	// Arabic short and formal names.
	"المملكة العربية السعودية":       "SA",
	"الإمارات العربية المتحدة":       "AE",
	"دولة الإمارات العربية المتحدة":  "AE",
	"الأردن":                         "JO",
	"المملكة الأردنية":               "JO",
	"المملكة الأردنية الهاشمية":      "JO",
	"لبنان":                          "LB",
	"جمهورية لبنان":                  "LB",
	"مصر":                            "EG",
	"جمهورية مصر العربية":            "EG",
	"اليمن":                          "YE",
	"جمهورية اليمن":                  "YE",
	"العراق":                         "IQ",
	"جمهورية العراق":                 "IQ",
	"سوريا":                          "SY",
	"فلسطين":                         "PS",
	"دولة فلسطين":                    "PS",
	"تونس":                           "TN",
	"جمهورية تونس":                   "TN",
	"المغرب":                         "MA",
	"المملكة المغربية":               "MA",
	"الجزائر":                        "DZ",
	"جمهورية الجزائر":                "DZ",
	"ليبيا":                          "LY",
	"دولة ليبيا":                     "LY",
	"السودان":                        "SD",
	"جمهورية السودان":                "SD",
	"جمهورية الصومال":                "SO",
	"دولة الكويت":                    "KW",
	"دولة قطر":                       "QA",
	"سلطنة عمان":                     "OM",
	"دولة البحرين":                   "BH",
}
