package cluster

var stopwords = toSet([]string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an",
	"and", "any", "are", "aren", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "cannot", "could", "did",
	"didn", "do", "does", "doesn", "doing", "don", "down", "during", "each", "even",
	"every", "few", "for", "from", "further", "get", "gets", "got", "had", "has",
	"have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "however", "i", "if", "in", "into", "is", "isn", "it", "its",
	"itself", "just", "let", "like", "made", "make", "many", "may", "me", "might",
	"more", "most", "much", "must", "my", "myself", "need", "new", "no", "nor",
	"not", "now", "of", "off", "often", "on", "once", "one", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "same", "see", "she",
	"should", "since", "so", "some", "still", "such", "than", "that", "the", "their",
	"theirs", "them", "themselves", "then", "there", "these", "they", "thing", "things", "this",
	"those", "through", "to", "too", "two", "under", "until", "up", "upon", "use",
	"used", "using", "very", "via", "was", "wasn", "way", "we", "well", "were",
	"what", "when", "where", "whether", "which", "while", "who", "whom", "why", "will",
	"with", "within", "without", "won", "would", "yet", "you", "your", "yours", "yourself",
})

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
