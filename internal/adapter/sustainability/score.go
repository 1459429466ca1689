// Package sustainability classifies foods by environmental impact.
package sustainability

import "strings"

// Result is an impact score in [0,100] (higher is better) with its flag.
type Result struct {
	Score int    `json:"score"`
	Flag  string `json:"flag"`
}

type rule struct {
	keywords []string
	result   Result
}

// Default is returned when no keyword matches.
var Default = Result{Score: 55, Flag: "Medium"}

// Rules are evaluated in order; the first match wins.
var rules = []rule{
	{[]string{"beef", "lamb", "mutton", "veal"}, Result{Score: 25, Flag: "High impact"}},
	{[]string{"pork", "cheese", "bacon"}, Result{Score: 45, Flag: "Medium-high"}},
	{[]string{"chicken", "poultry", "egg", "turkey"}, Result{Score: 65, Flag: "Medium"}},
	{[]string{
		"plant", "vegetable", "fruit", "grain", "bean", "legume", "lentil", "tofu",
		"broccoli", "lettuce", "romaine", "spinach", "kale", "carrot", "apple",
		"berries", "berry", "tomato", "potato", "rice", "oat", "salad",
	}, Result{Score: 90, Flag: "Low"}},
}

// Score classifies a category or product name.
func Score(category string) Result {
	c := strings.ToLower(category)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(c, kw) {
				return r.result
			}
		}
	}
	return Default
}
