package stats

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

/*
Utilities for validating stats registry contents in tests.
Add new checker functions here as needed.
*/
type RuleChecker struct {
	name    string
	checker func(interface{}, interface{}) bool
}

func nilCheck(a, b interface{}) (nilFound, eqValues bool) {
	nilFound = false
	if b == nil && a == nil {
		nilFound = true
		eqValues = true
	} else if b == nil || a == nil {
		nilFound = true
		eqValues = false
	}
	return
}

/*
errors if a is not float64, returns true if a == b
*/
func floatEqTest(a, b interface{}) bool {
	if nilFound, eqValue := nilCheck(a, b); nilFound {
		return eqValue
	}
	aflt := a.(float64)
	bflt := b.(float64)
	return aflt == bflt
}

var FloatEqTest = RuleChecker{name: "floatEqTest", checker: floatEqTest}

/*
errors if a is not float64, returns true if a > b
*/
func floatGTTest(a, b interface{}) bool {
	if nilFound, eqValue := nilCheck(a, b); nilFound {
		return eqValue
	}
	aflt := a.(float64)
	bflt := b.(float64)
	return aflt > bflt
}

var FloatGTTest = RuleChecker{name: "floatGTTest", checker: floatGTTest}

/*
errors if a is not int64, returns true if a == b
*/
func int64EqTest(a, b interface{}) bool {
	if nilFound, eqValue := nilCheck(a, b); nilFound {
		return eqValue
	}
	aint := a.(int64)
	bint := b.(int)
	return aint == int64(bint)
}

var Int64EqTest = RuleChecker{name: "int64EqTest", checker: int64EqTest}

/*
errors if a is not int64, returns true if a >= b
*/
func int64GTETest(a, b interface{}) bool {
	if nilFound, eqValue := nilCheck(a, b); nilFound {
		return eqValue
	}
	aint := a.(int64)
	bint := b.(int)
	return aint >= int64(bint)
}

var Int64GTETest = RuleChecker{name: "int64GTETest", checker: int64GTETest}

func doesNotExistTest(a, b interface{}) bool {
	return a == nil
}

var DoesNotExistTest = RuleChecker{name: "notExistCheck", checker: doesNotExistTest}

/*
defines the condition checker to use to validate the measurement.  Each checker(a, b)
implementation expects a to be the 'got' value and b to be the 'expected' value.
*/
type Rule struct {
	Checker RuleChecker
	Value   interface{}
}

/*
Verify that the stats registry contains values for the keys in the contains map
parameter and that each entry conforms to the rule associated with that key.
*/
func VerifyStats(tag string, statsRegistry StatsRegistry, t *testing.T, contains map[string]Rule) {
	asPctlRegistry, ok := statsRegistry.(*percentileStatsRegistry)
	err := false
	var msg bytes.Buffer
	msg.WriteString(tag)
	msg.WriteString(":stats registry error:\n")

	if ok {
		asJson := asPctlRegistry.MarshalAll()

		for key, rule := range contains {
			gotValue := asJson[key]
			if !rule.Checker.checker(gotValue, rule.Value) {
				err = true
				if strings.Compare(rule.Checker.name, DoesNotExistTest.name) == 0 {
					ruleMsg := fmt.Sprintf("%s: found stat entry when there should not be one", key)
					msg.WriteString(fmt.Sprintln(ruleMsg))
				} else {
					ruleMsg := fmt.Sprintf("%s: got %v, expected to pass %s with %v", key, gotValue, rule.Checker.name, rule.Value)
					msg.WriteString(fmt.Sprintln(ruleMsg))
				}
			}
		}
		if err {
			t.Error(msg.String())
			PPrintStats(tag, asPctlRegistry)
		}
	}
}

func PPrintStats(tag string, statsRegistry StatsRegistry) {
	fmt.Printf("%s:  Stats Registry:\n", tag)
	asPctlRegistry, _ := statsRegistry.(*percentileStatsRegistry)
	regBytes, _ := asPctlRegistry.MarshalJSONPretty()
	fmt.Printf("%s\n", regBytes)
}
