package morphology

var functionWords = map[string]map[string][]string{
	"english": {
		TagConjunction: {
			"and", "or", "but", "nor", "yet", "so", "if", "because", "although", "though",
			"while", "whereas", "unless", "until", "since", "than", "whether", "either", "neither",
		},
		TagPreposition: {
			"of", "at", "by", "for", "with", "about", "against", "between", "into", "through",
			"during", "before", "after", "above", "below", "to", "from", "up", "down", "in",
			"out", "on", "off", "over", "under", "upon", "within", "without", "across", "along",
			"among", "around", "behind", "beside", "beyond", "near", "toward", "towards", "via",
		},
		TagParticle: {
			"the", "an", "not", "no", "only", "just", "even", "too", "also", "very",
		},
		TagInterjection: {
			"oh", "ah", "wow", "hey", "hello", "hi", "oops", "alas", "ouch", "hmm", "yes", "ok",
		},
	},
	"russian": {
		TagConjunction: {
			"и", "а", "но", "или", "да", "что", "чтобы", "если", "когда", "как", "потому",
			"хотя", "либо", "ни", "тоже", "также", "зато", "однако", "будто",
		},
		TagPreposition: {
			"в", "во", "на", "с", "со", "к", "ко", "по", "о", "об", "обо", "от", "из", "за",
			"для", "до", "без", "под", "над", "при", "про", "через", "между", "около", "у",
		},
		TagParticle: {
			"не", "ли", "же", "бы", "вот", "даже", "уже", "ещё", "еще", "только", "лишь", "ведь",
		},
		TagInterjection: {
			"ах", "ох", "эх", "ой", "ого", "увы", "ура", "эй",
		},
	},
	"spanish": {
		TagConjunction: {
			"y", "e", "o", "u", "pero", "sino", "ni", "que", "porque", "aunque", "si", "como",
		},
		TagPreposition: {
			"a", "ante", "bajo", "con", "contra", "de", "desde", "en", "entre", "hacia",
			"hasta", "para", "por", "según", "sin", "sobre", "tras", "del", "al",
		},
		TagParticle: {
			"el", "la", "los", "las", "un", "una", "unos", "unas", "no",
		},
		TagInterjection: {
			"ay", "oh", "eh", "hola", "vaya", "ojalá",
		},
	},
	"french": {
		TagConjunction: {
			"et", "ou", "mais", "donc", "or", "ni", "car", "que", "quand", "si", "comme", "lorsque",
		},
		TagPreposition: {
			"à", "au", "aux", "de", "des", "du", "en", "dans", "par", "pour", "sur", "sous",
			"avec", "sans", "chez", "entre", "vers", "contre", "depuis", "pendant",
		},
		TagParticle: {
			"le", "la", "les", "un", "une", "ne", "pas", "plus",
		},
		TagInterjection: {
			"ah", "oh", "hélas", "bravo", "zut", "ouf",
		},
	},
}

// functionWordTable returns word -> tag for language. Languages without a
// table treat every word as a content word.
func functionWordTable(language string) map[string]string {
	table := make(map[string]string)
	for tag, words := range functionWords[language] {
		for _, w := range words {
			table[w] = tag
		}
	}
	return table
}
