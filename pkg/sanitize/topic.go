package sanitize

import (
	"regexp"
	"strings"
)

// OffTopicReply is returned for messages unrelated to transactions.
const OffTopicReply = "I'm a transaction dispute resolution assistant. I can help you with:\n" +
	"- Finding and understanding charges on your account\n" +
	"- Investigating unfamiliar transactions\n" +
	"- Filing disputes for unauthorized charges\n\n" +
	"How can I help you with your transactions today?"

var topicKeywords = []string{
	"charge", "charged", "transaction", "payment", "paid",
	"purchase", "bought", "spent", "cost", "bill", "billed",
	"debit", "credit", "withdraw", "withdrawal",
	"merchant", "store", "shop", "subscription",
	"refund", "dispute", "recognize", "unauthorized",
	"amount", "dollar", "money", "$", "€", "£",
}

var greetings = []*regexp.Regexp{
	regexp.MustCompile(`^(hi|hello|hey|good\s+(morning|afternoon|evening))[\s,!.]*$`),
	regexp.MustCompile(`^how\s+are\s+you`),
	regexp.MustCompile(`^thanks?(\s+you)?[\s,!.]*$`),
	regexp.MustCompile(`^(bye|goodbye|see\s+you)[\s,!.]*$`),
}

// IsOnTopic reports whether text concerns transactions or disputes, or is a
// plain greeting. When it is not, the canned reply is returned as well.
func IsOnTopic(text string) (bool, string) {
	lower := strings.ToLower(text)

	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			return true, ""
		}
	}
	for _, re := range greetings {
		if re.MatchString(lower) {
			return true, ""
		}
	}
	return false, OffTopicReply
}
