package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/stayflow-core/internal/audit"
	"github.com/nerrad567/stayflow-core/internal/store"
)

// ListRules returns one rule per known trigger event, creating inactive
// rules for events that have none yet.
func (s *Scheduler) ListRules(ctx context.Context, propertyID string) ([]Rule, error) {
	var rules []Rule
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		rules = rules[:0]
		for _, event := range KnownEvents() {
			rule, err := loadOrSeedRule(ctx, tx, event)
			if err != nil {
				return err
			}
			rules = append(rules, *rule)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// UpdateRule changes the rule for event. Activating a rule requires its
// template to exist.
func (s *Scheduler) UpdateRule(ctx context.Context, propertyID string, event TriggerEvent, u RuleUpdate) (*Rule, error) {
	if !event.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if err := ValidateRuleUpdate(u); err != nil {
		return nil, err
	}

	var rule *Rule
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		rule, err = loadOrSeedRule(ctx, tx, event)
		if err != nil {
			return err
		}

		if u.Active != nil {
			rule.Active = *u.Active
		}
		if u.TemplateID != nil {
			rule.TemplateID = *u.TemplateID
		}
		if u.DelayMinutes != nil {
			rule.DelayMinutes = *u.DelayMinutes
		}

		if rule.Active {
			if rule.TemplateID == "" {
				return fmt.Errorf("%w: an active rule needs a template", ErrInvalidRule)
			}
			if _, err := tx.Get(ctx, CollectionTemplates, rule.TemplateID); err != nil {
				return fmt.Errorf("rule %s template: %w", event, err)
			}
		}

		rule.UpdatedAt = tx.Now()
		if err := tx.Update(ctx, CollectionRules, rule.ID, rule); err != nil {
			return fmt.Errorf("saving rule %s: %w", event, err)
		}
		tx.Audit(audit.AuditLog{
			Action:     "automation.rule_updated",
			EntityType: "automation_rule",
			EntityID:   rule.ID,
			Details: map[string]any{
				"active":        rule.Active,
				"template_id":   rule.TemplateID,
				"delay_minutes": rule.DelayMinutes,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("automation rule updated", "property_id", propertyID, "event", event, "active", rule.Active)
	return rule, nil
}

func loadOrSeedRule(ctx context.Context, tx store.Tx, event TriggerEvent) (*Rule, error) {
	rule, err := store.Get[Rule](ctx, tx, CollectionRules, string(event))
	if err == nil {
		return rule, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	rule = &Rule{
		ID:           string(event),
		PropertyID:   tx.PropertyID(),
		TriggerEvent: event,
		Active:       false,
		UpdatedAt:    tx.Now(),
	}
	if err := tx.Create(ctx, CollectionRules, rule.ID, rule); err != nil {
		return nil, fmt.Errorf("seeding rule %s: %w", event, err)
	}
	return rule, nil
}

// SaveTemplate creates or replaces a template. A template without an id
// gets one derived from its name.
func (s *Scheduler) SaveTemplate(ctx context.Context, propertyID string, t Template) (*Template, error) {
	if err := ValidateTemplate(&t); err != nil {
		return nil, err
	}

	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		action := "automation.template_updated"
		existing, err := store.Get[Template](ctx, tx, CollectionTemplates, t.ID)
		switch {
		case t.ID == "" || errors.Is(err, store.ErrNotFound):
			action = "automation.template_created"
			if t.ID == "" {
				t.ID = GenerateSlug(t.Name)
				if t.ID == "" {
					t.ID = GenerateID("tpl")
				} else if _, err := tx.Get(ctx, CollectionTemplates, t.ID); err == nil {
					t.ID = GenerateID("tpl")
				}
			}
			t.CreatedAt = tx.Now()
		case err != nil:
			return err
		default:
			t.CreatedAt = existing.CreatedAt
		}

		t.PropertyID = tx.PropertyID()
		t.UpdatedAt = tx.Now()
		if err := tx.Set(ctx, CollectionTemplates, t.ID, &t); err != nil {
			return fmt.Errorf("saving template %s: %w", t.ID, err)
		}
		tx.Audit(audit.AuditLog{
			Action:     action,
			EntityType: "message_template",
			EntityID:   t.ID,
			Details:    map[string]any{"name": t.Name},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns every template of the property.
func (s *Scheduler) ListTemplates(ctx context.Context, propertyID string) ([]Template, error) {
	var out []Template
	err := s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		var err error
		out, err = store.Query[Template](ctx, tx, CollectionTemplates)
		return err
	})
	return out, err
}

// DeleteTemplate removes a template. Rules still pointing at it stop
// queueing messages until they are given another one.
func (s *Scheduler) DeleteTemplate(ctx context.Context, propertyID, id string) error {
	return s.store.RunTx(ctx, propertyID, func(tx store.Tx) error {
		if err := tx.Delete(ctx, CollectionTemplates, id); err != nil {
			return err
		}
		tx.Audit(audit.AuditLog{
			Action:     "automation.template_deleted",
			EntityType: "message_template",
			EntityID:   id,
		})
		return nil
	})
}
