// Package review provides the CEL-Go based post-ranking review engine.
package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/uuid"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// Engine evaluates review rules against ranked items.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	usageGetter   UsageGetter
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.ReviewRule
	Program cel.Program
}

// UsageGetter returns the observed issues-per-day rate for an item. It is
// optional; without it the daily_issues variable evaluates to 0.
type UsageGetter func(ctx context.Context, tenantID string, itemID int) (float64, error)

// NewEngine creates a review engine.
func NewEngine(usageGetter UsageGetter, maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment with one variable per item field
	env, err := cel.NewEnv(
		cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("risk", cel.StringType),
		cel.Variable("demand_fluctuation", cel.StringType),
		cel.Variable("consignment_stock", cel.StringType),
		cel.Variable("unit_size", cel.StringType),
		cel.Variable("average_stock", cel.DoubleType),
		cel.Variable("daily_usage", cel.DoubleType),
		cel.Variable("unit_cost", cel.DoubleType),
		cel.Variable("lead_time", cel.IntType),
		cel.Variable("topsis_score", cel.DoubleType),
		cel.Variable("fuzzy_score", cel.DoubleType),
		cel.Variable("class", cel.StringType),
		cel.Variable("fuzzy_class", cel.StringType),
		cel.Variable("daily_issues", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		usageGetter:   usageGetter,
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without loading it into the engine.
func (e *Engine) ValidateRule(rule *domain.ReviewRule) error {
	if rule == nil {
		return fmt.Errorf("review rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(rule *domain.ReviewRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled

	return nil
}

// LoadRules compiles and loads all enabled rules.
func (e *Engine) LoadRules(rules []*domain.ReviewRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReviewInput holds a completed ranking for rule evaluation.
type ReviewInput struct {
	TenantID  string
	RankingID string
	Items     []domain.Item
}

// ReviewAll evaluates every loaded rule against every item and returns one
// flag per match. Items are evaluated in parallel; rule evaluation errors
// skip the rule for that item rather than failing the review.
func (e *Engine) ReviewAll(ctx context.Context, input *ReviewInput) ([]domain.ReviewFlag, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 || len(input.Items) == 0 {
		return nil, nil
	}

	// Per-item result slots keep the collection lock-free.
	flagsByItem := make([][]domain.ReviewFlag, len(input.Items))
	var wg sync.WaitGroup

	sem := make(chan struct{}, e.maxWorkers)

	for i := range input.Items {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			flagsByItem[idx] = e.reviewItem(ctx, rules, input, &input.Items[idx])
		}(i)
	}

	wg.Wait()

	var flags []domain.ReviewFlag
	for _, itemFlags := range flagsByItem {
		flags = append(flags, itemFlags...)
	}

	return flags, nil
}

// reviewItem evaluates all rules against a single item.
func (e *Engine) reviewItem(ctx context.Context, rules []*CompiledRule, input *ReviewInput, item *domain.Item) []domain.ReviewFlag {
	var dailyIssues float64
	if e.usageGetter != nil {
		if rate, err := e.usageGetter(ctx, input.TenantID, item.ID); err == nil {
			dailyIssues = rate
		}
	}

	activation := map[string]any{
		"item": map[string]any{
			"id":                 item.ID,
			"risk":               item.Risk,
			"demand_fluctuation": item.DemandFluctuation,
			"consignment_stock":  item.ConsignmentStock,
			"unit_size":          item.UnitSize,
			"average_stock":      item.AverageStock,
			"daily_usage":        item.DailyUsage,
			"unit_cost":          item.UnitCost,
			"lead_time":          item.LeadTime,
		},
		"risk":               item.Risk,
		"demand_fluctuation": item.DemandFluctuation,
		"consignment_stock":  item.ConsignmentStock,
		"unit_size":          item.UnitSize,
		"average_stock":      item.AverageStock,
		"daily_usage":        item.DailyUsage,
		"unit_cost":          item.UnitCost,
		"lead_time":          item.LeadTime,
		"topsis_score":       item.TOPSISScore,
		"fuzzy_score":        item.FuzzyTOPSISScore,
		"class":              item.Class,
		"fuzzy_class":        item.FuzzyClass,
		"daily_issues":       dailyIssues,
	}

	var flags []domain.ReviewFlag
	for _, rule := range rules {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			continue
		}

		matched, ok := out.(types.Bool)
		if !ok || !bool(matched) {
			continue
		}

		reason := rule.Rule.Description
		if reason == "" {
			reason = rule.Rule.Name
		}

		flags = append(flags, domain.ReviewFlag{
			ID:        uuid.New().String(),
			TenantID:  input.TenantID,
			RankingID: input.RankingID,
			ItemID:    item.ID,
			RuleID:    rule.Rule.ID,
			RuleName:  rule.Rule.Name,
			Severity:  rule.Rule.Severity,
			Reason:    reason,
			CreatedAt: time.Now().UTC(),
		})
	}

	return flags
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(rules []*domain.ReviewRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rules.
func (e *Engine) GetLoadedRules() []*domain.ReviewRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.ReviewRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.ReviewRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
