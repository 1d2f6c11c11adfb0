package matching

// Medical synonym groups used by the synonym strategy. Each group is
// expanded into a bidirectional lookup table once at package init, never
// re-parsed per call.
var synonymGroups = [][]string{
	{"tumor", "mass", "lesion", "neoplasm", "growth", "nodule"},
	{"carcinoma", "cancer", "malignancy"},
	{"primary", "main", "principal"},
	{"left", "lt"},
	{"right", "rt"},
	{"bilateral", "both"},
	{"breast", "mammary"},
	{"lung", "pulmonary"},
	{"liver", "hepatic"},
	{"kidney", "renal"},
	{"brain", "cerebral"},
	{"metastasis", "metastatic", "secondary"},
	{"biopsy", "specimen", "sample"},
	{"benign", "noncancerous"},
	{"stage", "staging"},
	{"grade", "grading"},
}

var synonymTable map[string][]string

func init() {
	synonymTable = make(map[string][]string)
	for _, group := range synonymGroups {
		for _, word := range group {
			for _, other := range group {
				if other != word {
					synonymTable[word] = append(synonymTable[word], other)
				}
			}
		}
	}
}

// SynonymsOf returns the known medical synonyms of a lower-case token,
// or nil when the token has none
func SynonymsOf(token string) []string {
	return synonymTable[token]
}
