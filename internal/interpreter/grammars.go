package interpreter

import (
	"regexp"
	"strings"

	"flowerbot/internal/core"
)

const number = `(\d+(?:\.\d+)?)`

var (
	saleSentence = regexp.MustCompile(`(?i)(?:I\s+)?Sold\s+` + number + `\s+grams?\s+to\s+(.+?)\s+for\s+` + number + `\s+rupees`)
	buySentence  = regexp.MustCompile(`(?i)(?:I\s+)?Bought\s+` + number + `\s+grams?\s+from\s+(.+?)\s+for\s+` + number + `\s+rupees`)
	buyPrefix    = regexp.MustCompile(`(?i)^buy[\s,]+`)
)

// SaleSentence matches "I Sold 5 grams to Alice for 500 rupees".
var SaleSentence = Grammar{Name: "sale_sentence", Match: sentenceMatcher(saleSentence, core.Sale)}

// BuySentence matches "Bought 10 grams from Supplier for 800 rupees".
var BuySentence = Grammar{Name: "buy_sentence", Match: sentenceMatcher(buySentence, core.Buy)}

// Structured matches the terse comma form: "[buy] amount[, counterparty], price".
var Structured = Grammar{Name: "structured", Match: matchStructured}

func sentenceMatcher(re *regexp.Regexp, action core.Action) func(string) (core.Intent, bool) {
	return func(text string) (core.Intent, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return core.Intent{}, false
		}
		amount, err := core.ParseQuantity(m[1])
		if err != nil {
			return core.Intent{}, false
		}
		price, err := core.ParseQuantity(m[3])
		if err != nil {
			return core.Intent{}, false
		}
		return core.Intent{
			Action:       action,
			Amount:       amount,
			Counterparty: strings.TrimSpace(m[2]),
			Price:        price,
		}, true
	}
}

func matchStructured(text string) (core.Intent, bool) {
	action := core.Sale
	rest := text
	if loc := buyPrefix.FindStringIndex(text); loc != nil {
		action = core.Buy
		rest = text[loc[1]:]
	}

	parts := strings.Split(rest, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var amountField, priceField, counterparty string
	switch len(parts) {
	case 2:
		amountField, priceField = parts[0], parts[1]
		counterparty = core.UnknownCounterparty
	case 3:
		amountField, counterparty, priceField = parts[0], parts[1], parts[2]
		if counterparty == "" {
			counterparty = core.UnknownCounterparty
		}
	default:
		return core.Intent{}, false
	}

	amount, err := core.ParseQuantity(amountField)
	if err != nil {
		return core.Intent{}, false
	}
	price, err := core.ParseQuantity(priceField)
	if err != nil {
		return core.Intent{}, false
	}
	return core.Intent{Action: action, Amount: amount, Counterparty: counterparty, Price: price}, true
}
