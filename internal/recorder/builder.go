package recorder

import (
	"fmt"
	"time"

	"steprecorder/internal/dom"
	"steprecorder/internal/i18n"
	"steprecorder/internal/models"
)

// pendingStep is a step under construction. Only commit produces a
// models.Step, so a half-built step can never reach the session.
type pendingStep struct {
	kind        models.ActionKind
	action      string
	description string
	selectors   *models.Selectors
	screenshot  string
}

func newClickStep(lang, target string) *pendingStep {
	action := i18n.Translate(lang, i18n.Click)
	return &pendingStep{
		kind:        models.ActionClick,
		action:      action,
		description: fmt.Sprintf("%s %s %s", action, i18n.Translate(lang, i18n.On), target),
	}
}

func newInputStep(lang, value, target string) *pendingStep {
	action := i18n.Translate(lang, i18n.Input)
	return &pendingStep{
		kind:        models.ActionInput,
		action:      action,
		description: fmt.Sprintf(`%s "%s" %s %s`, action, value, i18n.Translate(lang, i18n.On), target),
	}
}

func newNavigateStep(lang, url string) *pendingStep {
	action := i18n.Translate(lang, i18n.Navigate)
	return &pendingStep{
		kind:        models.ActionNavigate,
		action:      action,
		description: action + " " + url,
	}
}

func (p *pendingStep) locate(el dom.Element) {
	p.selectors = &models.Selectors{
		XPath: dom.GenerateXPath(el),
		CSS:   dom.GenerateCSS(el),
	}
}

func (p *pendingStep) locateWith(sel models.Selectors) {
	p.selectors = &sel
}

func (p *pendingStep) inFrame() {
	p.description += " (in iframe)"
}

func (p *pendingStep) enrich(screenshot string) {
	p.screenshot = screenshot
}

func (p *pendingStep) commit(at time.Time) models.Step {
	return models.Step{
		Kind:        p.kind,
		Action:      p.action,
		Description: p.description,
		Selectors:   p.selectors,
		Screenshot:  p.screenshot,
		Timestamp:   at.Format(models.StepTimeLayout),
	}
}

// maskedValue hides the value of password inputs, including empty ones.
func maskedValue(el dom.Element, value string) string {
	if dom.IsPassword(el) {
		return models.PasswordMask
	}
	return value
}

// elementInfo is the plain-data description of el used across frames.
func elementInfo(el dom.Element) models.ElementInfo {
	return models.ElementInfo{
		Description: dom.Describe(el),
		Selectors: models.Selectors{
			XPath: dom.GenerateXPath(el),
			CSS:   dom.GenerateCSS(el),
		},
	}
}
