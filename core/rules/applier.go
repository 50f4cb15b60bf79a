package rules

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vat-cost/core/expression"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
	"vat-cost/internal/logging"
)

// Built-in variables bound for every rule
const (
	VarBasePrice         = "basePrice"
	VarRunningCost       = "runningCost"
	VarCompoundedBase    = "compoundedBase"
	VarServiceBaseCost   = "serviceBaseCost"
	VarTransactionVolume = "transactionVolume"
	VarServiceType       = "serviceType"
	VarFilingFrequency   = "filingFrequency"
	VarCountryCode       = "countryCode"
	VarCountryCount      = "countryCount"
	VarStandardVATRate   = "standardVatRate"
	VarAsOf              = "asOf"
)

// State is what a rule sees of the calculation it is applied in
type State struct {
	// Country is the country being priced
	Country types.Country

	// Request is the calculation input
	Request *types.CalculationContext

	// ServiceBaseCost is the catalog price of the requested service
	ServiceBaseCost decimal.Decimal

	// RunningCost is the service cost plus every adjustment so far.
	// Rules read it as basePrice and runningCost.
	RunningCost decimal.Decimal

	// CompoundedBase is the service cost plus compounding adjustments only
	CompoundedBase decimal.Decimal

	// AsOf is the resolution instant
	AsOf time.Time
}

// NewState starts a country's running cost at the service base cost
func NewState(country types.Country, req *types.CalculationContext, baseCost decimal.Decimal, asOf time.Time) *State {
	return &State{
		Country:         country,
		Request:         req,
		ServiceBaseCost: baseCost,
		RunningCost:     baseCost,
		CompoundedBase:  baseCost,
		AsOf:            asOf,
	}
}

// Fold adds an adjustment to the running cost, which every later rule sees.
// Compounding adjustments also move the compounded base.
func (s *State) Fold(adjustment decimal.Decimal, combination types.Combination) {
	s.RunningCost = s.RunningCost.Add(adjustment)
	if combination == types.CombineCompounding {
		s.CompoundedBase = s.CompoundedBase.Add(adjustment)
	}
}

// Result is the outcome of applying one rule
type Result struct {
	// Applied is false when a condition did not hold
	Applied bool

	// Adjustment is the rounded signed amount the rule contributes
	Adjustment decimal.Decimal

	// Combination is the rule type's policy
	Combination types.Combination
}

// Programs provides compiled rule expressions
type Programs interface {
	// Program returns the compiled expression of a rule
	Program(ruleID string) (*expression.Program, bool)
}

// Applier evaluates rules against a calculation state
type Applier struct {
	programs Programs
	places   int32
	logger   *zap.Logger
}

// NewApplier creates an applier rounding adjustments to places decimal places.
// programs may be nil, in which case expressions are compiled on demand.
func NewApplier(programs Programs, places int32, logger *zap.Logger) *Applier {
	return &Applier{
		programs: programs,
		places:   places,
		logger:   logging.OrDefault(logger),
	}
}

// Apply evaluates a rule's conditions and, when they all hold, its expression.
// The state is not modified; callers fold the result with State.Fold.
func (a *Applier) Apply(rule *types.Rule, state *State) (Result, error) {
	result := Result{Combination: CombinationFor(rule.Type)}

	env, err := a.Environment(rule, state)
	if err != nil {
		return result, err
	}

	for i, cond := range rule.Conditions {
		ok, err := evalCondition(cond, env)
		if err != nil {
			return result, ruleError(err, rule).WithContext("condition", i)
		}
		if !ok {
			a.logger.Debug("rule not applied",
				zap.String("rule_id", rule.ID),
				zap.String("parameter", cond.Parameter),
				zap.String("operator", string(cond.Operator)),
				zap.String("value", cond.Value),
			)
			return result, nil
		}
	}

	prog, err := a.program(rule)
	if err != nil {
		return result, err
	}

	amount, err := prog.NumberResult(env)
	if err != nil {
		return result, ruleError(errors.Evaluation("rule expression failed", err), rule)
	}

	result.Applied = true
	result.Adjustment = amount.Round(a.places)

	a.logger.Debug("rule applied",
		zap.String("rule_id", rule.ID),
		zap.String("type", string(rule.Type)),
		zap.String("combination", string(result.Combination)),
		zap.String("adjustment", result.Adjustment.String()),
	)
	return result, nil
}

// Environment builds the values a rule's expression and conditions can reference.
// Declared parameters bind, in order of preference, the built-in of the same
// name, true for a requested add-on of the same name, or their default.
func (a *Applier) Environment(rule *types.Rule, state *State) (expression.Env, error) {
	env := builtins(state)

	for _, p := range rule.Parameters {
		dataType := string(p.DataType)

		var (
			v   expression.Value
			err error
		)
		if builtin, ok := env.Lookup(p.Name); ok {
			v, err = expression.CoerceValue(builtin, dataType)
		} else if state.Request != nil && state.Request.HasAdditionalService(p.Name) {
			v, err = expression.CoerceValue(expression.Bool(true), dataType)
		} else {
			v, err = expression.CoerceDefault(p.DefaultValue, dataType)
		}
		if err != nil {
			return nil, ruleError(errors.DataIntegrity("parameter coercion failed", err), rule).
				WithContext("parameter", p.Name)
		}
		env.Set(p.Name, v)
	}

	return env, nil
}

func (a *Applier) program(rule *types.Rule) (*expression.Program, error) {
	if a.programs != nil {
		if prog, ok := a.programs.Program(rule.ID); ok {
			return prog, nil
		}
	}
	prog, err := expression.Parse(rule.Expression)
	if err != nil {
		return nil, ruleError(errors.DataIntegrity("malformed rule expression", err), rule)
	}
	return prog, nil
}

func builtins(state *State) expression.Env {
	env := expression.NewEnv()
	env.Set(VarBasePrice, expression.Number(state.RunningCost))
	env.Set(VarRunningCost, expression.Number(state.RunningCost))
	env.Set(VarCompoundedBase, expression.Number(state.CompoundedBase))
	env.Set(VarServiceBaseCost, expression.Number(state.ServiceBaseCost))
	env.Set(VarCountryCode, expression.String(state.Country.Code))
	env.Set(VarStandardVATRate, expression.Number(state.Country.StandardVATRate))
	env.Set(VarAsOf, expression.Date(state.AsOf))

	if req := state.Request; req != nil {
		env.Set(VarTransactionVolume, expression.NumberFromInt(int64(req.TransactionVolume)))
		env.Set(VarServiceType, expression.String(string(req.ServiceType)))
		env.Set(VarFilingFrequency, expression.String(string(req.FilingFrequency)))
		env.Set(VarCountryCount, expression.NumberFromInt(int64(len(req.CountryCodes))))
	}
	return env
}

// evalCondition compares the environment value of the condition's parameter
// with the condition value coerced to the same kind
func evalCondition(cond types.RuleCondition, env expression.Env) (bool, error) {
	actual, ok := env.Lookup(cond.Parameter)
	if !ok {
		return false, errors.Newf(errors.TypeEvaluation, "condition references unknown parameter %q", cond.Parameter)
	}

	expected, err := expression.CoerceValue(expression.String(cond.Value), actual.Kind().String())
	if err != nil {
		return false, errors.DataIntegrity("condition value coercion failed", err).
			WithContext("parameter", cond.Parameter)
	}

	matched, err := expression.Compare(string(cond.Operator), actual, expected)
	if err != nil {
		return false, errors.Evaluation("condition comparison failed", err).
			WithContext("parameter", cond.Parameter)
	}
	return matched, nil
}

func ruleError(err error, rule *types.Rule) *errors.Error {
	var e *errors.Error
	if de, ok := err.(*errors.Error); ok {
		e = de
	} else {
		e = errors.Evaluation("rule evaluation failed", err)
	}
	return e.WithContext("rule_id", rule.ID).WithContext("expression", rule.Expression)
}
