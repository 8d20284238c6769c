package quiz

import "strings"

// The built-in vocabulary bank. English headword and Turkish meaning, grouped
// by CEFR level. Enough words per level that distractor sampling never runs
// dry at the default option counts.
type word struct {
	english string
	meaning string
}

var bank = map[string][]word{
	"A1": {
		{"apple", "elma"},
		{"book", "kitap"},
		{"water", "su"},
		{"house", "ev"},
		{"dog", "köpek"},
		{"cat", "kedi"},
		{"bread", "ekmek"},
		{"door", "kapı"},
		{"table", "masa"},
		{"school", "okul"},
		{"friend", "arkadaş"},
		{"milk", "süt"},
	},
	"A2": {
		{"journey", "yolculuk"},
		{"weather", "hava durumu"},
		{"kitchen", "mutfak"},
		{"holiday", "tatil"},
		{"ticket", "bilet"},
		{"station", "istasyon"},
		{"luggage", "bagaj"},
		{"neighbour", "komşu"},
		{"breakfast", "kahvaltı"},
		{"umbrella", "şemsiye"},
		{"pharmacy", "eczane"},
		{"bridge", "köprü"},
	},
	"B1": {
		{"achievement", "başarı"},
		{"suggestion", "öneri"},
		{"environment", "çevre"},
		{"experience", "deneyim"},
		{"opportunity", "fırsat"},
		{"knowledge", "bilgi"},
		{"decision", "karar"},
		{"advertisement", "reklam"},
		{"employment", "istihdam"},
		{"equipment", "ekipman"},
		{"improvement", "gelişme"},
		{"behaviour", "davranış"},
	},
	"B2": {
		{"negotiation", "müzakere"},
		{"perception", "algı"},
		{"consequence", "sonuç"},
		{"assumption", "varsayım"},
		{"controversy", "tartışma"},
		{"legislation", "mevzuat"},
		{"phenomenon", "olgu"},
		{"reluctance", "isteksizlik"},
		{"inheritance", "miras"},
		{"ambiguity", "belirsizlik"},
		{"resilience", "dayanıklılık"},
		{"endeavour", "çaba"},
	},
}

// wordsFor returns the pool for a level, or every word when the level is
// unknown or empty.
func wordsFor(level string) []word {
	if pool, ok := bank[strings.ToUpper(strings.TrimSpace(level))]; ok {
		return pool
	}
	var all []word
	for _, lvl := range []string{"A1", "A2", "B1", "B2"} {
		all = append(all, bank[lvl]...)
	}
	return all
}
