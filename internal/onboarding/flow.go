// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package onboarding is the five-step exporter setup: company profile,
// product portfolio, target markets, buyer profile and plan selection.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"loxtr/console/internal/backend"
	"loxtr/console/internal/enrich"
	"loxtr/console/internal/workflow"
)

const (
	defaultOrigin    = "Turkey"
	discoveryCount   = 5
	discoveryMarkets = 3
	discoveryGroup   = "Initial Research"
)

var (
	fallbackIndustries = []string{"Wholesale Distributors", "Industrial Manufacturers", "Supply Chain Logistics"}
	fallbackRoles      = []string{"Procurement Manager", "Operations Director", "Purchasing Lead"}
)

// Timings are the least durations of the pending screens.
type Timings struct {
	ValueProp    time.Duration
	BuyerProfile time.Duration
	Discovery    time.Duration
}

// DefaultTimings returns the standard pending durations.
func DefaultTimings() Timings {
	return Timings{ValueProp: 5 * time.Second, BuyerProfile: 6 * time.Second, Discovery: 8 * time.Second}
}

// Flow runs onboarding against the backend.
type Flow struct {
	api     backend.API
	driver  *workflow.Driver[Draft]
	timings Timings
	timer   workflow.Timer
	logger  zerolog.Logger

	bg         sync.WaitGroup
	mu         sync.Mutex
	pendingBio *backend.Bio
}

// Option configures a Flow.
type Option func(*Flow)

// WithTimings overrides the pending durations.
func WithTimings(t Timings) Option { return func(f *Flow) { f.timings = t } }

// WithTimer replaces the clock used for pending durations.
func WithTimer(t workflow.Timer) Option { return func(f *Flow) { f.timer = t } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(f *Flow) { f.logger = l } }

// New creates a flow over an empty profile.
func New(api backend.API, opts ...Option) *Flow {
	f := &Flow{
		api:     api,
		timings: DefaultTimings(),
		timer:   workflow.RealTimer,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.reset(backend.Profile{})
	return f
}

func (f *Flow) reset(p backend.Profile) {
	steps := []workflow.Step[Draft]{
		{Name: stepNames[StepProfile], Validate: validateProfile},
		{Name: stepNames[StepPortfolio], Validate: validatePortfolio, Enrich: f.enrichStrategy, MinPending: f.timings.ValueProp},
		{Name: stepNames[StepStrategy], Validate: validateStrategy, Enrich: f.enrichBuyerProfile, MinPending: f.timings.BuyerProfile},
		{Name: stepNames[StepCustomers], Validate: validateCustomers},
		{Name: stepNames[StepPlans]},
	}
	draft := Draft{
		Profile:    p.WithDefaults(),
		Markets:    enrich.NewDraft(enrich.SourceRecommendation, p.TargetMarkets, p.TargetMarkets...),
		Industries: enrich.NewDraft(enrich.SourceRecommendation, p.TargetIndustries, p.TargetIndustries...),
		Roles:      enrich.NewDraft(enrich.SourceRecommendation, p.TargetJobTitles, p.TargetJobTitles...),
	}
	// New only fails on an empty step list.
	f.driver, _ = workflow.New(steps, draft,
		workflow.WithPersist(f.persist),
		workflow.WithSubmit(f.submit),
		workflow.WithTimer[Draft](f.timer),
		workflow.WithLogger[Draft](f.logger),
	)
}

// Load fetches the stored profile and resumes at the first incomplete step.
func (f *Flow) Load(ctx context.Context) error {
	p, err := f.api.Me(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	f.reset(p)
	f.driver.Resume(completion(p))
	return nil
}

// Driver exposes the step driver for navigation and inspection.
func (f *Flow) Driver() *workflow.Driver[Draft] { return f.driver }

// Draft returns the current form state.
func (f *Flow) Draft() Draft { return f.driver.Draft() }

// Edit changes the profile fields.
func (f *Flow) Edit(fn func(p *backend.Profile)) error {
	return f.driver.Update(func(d *Draft) { fn(&d.Profile) })
}

// AddProduct appends a product to the portfolio.
func (f *Flow) AddProduct(p backend.Product) error {
	if p.Name == "" || p.HSCode == "" {
		return &workflow.FieldError{Step: StepPortfolio, Field: "product", Message: "product name and HS code are required"}
	}
	return f.driver.Update(func(d *Draft) {
		d.Profile.ProductGroups = append(append([]backend.Product(nil), d.Profile.ProductGroups...), p)
	})
}

// ToggleMarket flips a target market.
func (f *Flow) ToggleMarket(country string) error {
	return f.driver.Update(func(d *Draft) {
		d.Markets.Toggle(country)
		d.Profile.TargetMarkets = d.Markets.Accepted()
	})
}

// ToggleIndustry flips a target buyer industry.
func (f *Flow) ToggleIndustry(name string) error {
	return f.driver.Update(func(d *Draft) {
		d.Industries.Toggle(name)
		d.Profile.TargetIndustries = d.Industries.Accepted()
	})
}

// ToggleRole flips a target decision-maker role.
func (f *Flow) ToggleRole(title string) error {
	return f.driver.Update(func(d *Draft) {
		d.Roles.Toggle(title)
		d.Profile.TargetJobTitles = d.Roles.Accepted()
	})
}

// Next leaves the current step. Leaving the profile step without a company
// description starts website scraping in the background.
func (f *Flow) Next(ctx context.Context) error {
	from := f.driver.Current()
	if err := f.driver.Advance(ctx); err != nil {
		return err
	}
	if from == StepProfile {
		d := f.driver.Draft()
		if d.Profile.CompanyDescription == "" && d.Profile.Website != "" {
			f.scrape(ctx, d.Profile.Website)
		}
	}
	return nil
}

// Wait blocks until background scraping and draft saves finish.
func (f *Flow) Wait() {
	f.bg.Wait()
	f.driver.Wait()
}

func (f *Flow) scrape(ctx context.Context, website string) {
	ctx = context.WithoutCancel(ctx)
	f.bg.Add(1)
	go func() {
		defer f.bg.Done()
		bio, err := f.api.GenerateBio(ctx, website)
		if err != nil {
			f.logger.Debug().Err(err).Str("website", website).Msg("website scraping failed")
			return
		}
		err = f.driver.Update(func(d *Draft) { applyBio(d, bio) })
		if errors.Is(err, workflow.ErrBusy) {
			f.mu.Lock()
			f.pendingBio = &bio
			f.mu.Unlock()
			return
		}
		if err != nil {
			return
		}
		if err := f.api.UpdateProfile(ctx, f.driver.Draft().Profile); err != nil {
			f.logger.Debug().Err(err).Msg("saving scraped bio failed")
		}
	}()
}

// takePendingBio applies a scrape result that arrived while a step was pending.
func (f *Flow) takePendingBio(d *Draft) {
	f.mu.Lock()
	bio := f.pendingBio
	f.pendingBio = nil
	f.mu.Unlock()
	if bio != nil {
		applyBio(d, *bio)
	}
}

func applyBio(d *Draft, bio backend.Bio) {
	if bio.Bio != "" {
		d.Profile.CompanyDescription = bio.Bio
	}
	if bio.Logo != "" {
		d.Profile.Logo = bio.Logo
	}
	d.Profile.ProductGroups = enrich.MergeProducts(d.Profile.ProductGroups, bio.Products)
}

// enrichStrategy writes the value proposition and recommends markets.
func (f *Flow) enrichStrategy(ctx context.Context, d Draft) (Draft, error) {
	f.takePendingBio(&d)
	p := d.Profile

	vp, err := f.api.GenerateValueProp(ctx, backend.ValuePropRequest{
		CompanyName:  p.Company,
		Industry:     p.Industry,
		Description:  p.CompanyDescription,
		Products:     backend.ProductNames(p.ProductGroups),
		Certificates: lo.Uniq(lo.FlatMap(p.ProductGroups, func(pr backend.Product, _ int) []string { return pr.Certificates })),
	})
	if err != nil || vp == "" {
		f.logger.Debug().Err(err).Msg("value proposition fell back to template")
		vp = FallbackValueProp(p.Company, p.Industry)
	}
	d.ValueProp = vp
	d.Profile.ValueProposition = vp

	origin := p.Country
	if origin == "" {
		origin = defaultOrigin
	}
	recs, err := f.api.RecommendMarkets(ctx, p.ProductGroups, origin)
	if err != nil {
		f.logger.Debug().Err(err).Msg("market analysis failed, markets stay manual")
		return d, ctx.Err()
	}
	d.Recommendations = recs
	countries := lo.Map(recs, func(r backend.MarketRecommendation, _ int) string { return r.Country })
	selected := lo.FilterMap(recs, func(r backend.MarketRecommendation, _ int) (string, bool) { return r.Country, r.Selected })
	d.Markets = enrich.NewDraft(enrich.SourceRecommendation, countries, selected...)
	for _, m := range p.TargetMarkets {
		d.Markets.Accept(m)
	}
	d.Profile.TargetMarkets = d.Markets.Accepted()
	return d, nil
}

// enrichBuyerProfile proposes buyer industries and roles once.
func (f *Flow) enrichBuyerProfile(ctx context.Context, d Draft) (Draft, error) {
	f.takePendingBio(&d)
	if len(d.Industries.Candidates()) > 0 {
		return d, nil
	}
	bp, err := f.api.GenerateBuyerProfile(ctx, d.Profile.ProductGroups, d.Profile.TargetMarkets)
	if err != nil {
		f.logger.Debug().Err(err).Msg("buyer profile analysis failed, using fallback")
		d.Industries = enrich.NewDraft(enrich.SourceFallback, fallbackIndustries, fallbackIndustries...)
		d.Roles = enrich.NewDraft(enrich.SourceFallback, fallbackRoles, fallbackRoles...)
	} else {
		d.Industries = icpDraft(bp.TargetIndustries)
		d.Roles = icpDraft(bp.DecisionMakers)
	}
	d.Profile.TargetIndustries = d.Industries.Accepted()
	d.Profile.TargetJobTitles = d.Roles.Accepted()
	return d, ctx.Err()
}

func icpDraft(entries []backend.ICPEntry) *enrich.Draft[string] {
	labels := lo.Map(entries, func(e backend.ICPEntry, _ int) string { return e.Label() })
	selected := lo.FilterMap(entries, func(e backend.ICPEntry, _ int) (string, bool) { return e.Label(), e.Selected })
	return enrich.NewDraft(enrich.SourceRecommendation, labels, selected...)
}

// FallbackValueProp is the value proposition used when generation fails.
func FallbackValueProp(company, industry string) string {
	return fmt.Sprintf("%s is a manufacturer in the %s sector, dedicated to delivering high-quality products to global markets.", company, industry)
}

func (f *Flow) persist(ctx context.Context, d Draft) error {
	return f.api.UpdateProfile(ctx, d.Profile)
}

// submit marks onboarding complete, then runs a first lead discovery. A
// failed discovery leaves the user with an empty dashboard, not an error.
func (f *Flow) submit(ctx context.Context, d Draft) error {
	p := d.Profile
	p.OnboardingCompleted = true
	if err := f.api.UpdateProfile(ctx, p); err != nil {
		return err
	}
	discover := workflow.WithMinimumDuration(f.timings.Discovery, f.timer, func(ctx context.Context, d Draft) (Draft, error) {
		req, ok := discoveryRequest(d.Profile)
		if !ok {
			return d, nil
		}
		if err := f.api.DiscoverLeads(ctx, req); err != nil {
			f.logger.Warn().Err(err).Msg("initial lead discovery failed")
		}
		return d, nil
	})
	_, _ = discover(ctx, d)
	return nil
}

func discoveryRequest(p backend.Profile) (backend.DiscoverRequest, bool) {
	if len(p.ProductGroups) == 0 {
		return backend.DiscoverRequest{}, false
	}
	industry := p.Industry
	if len(p.TargetIndustries) > 0 {
		industry = p.TargetIndustries[0]
	}
	markets := p.TargetMarkets
	if len(markets) > discoveryMarkets {
		markets = markets[:discoveryMarkets]
	}
	return backend.DiscoverRequest{
		Product:       p.ProductGroups[0].Name,
		TargetMarkets: markets,
		Industry:      industry,
		Count:         discoveryCount,
		GroupName:     discoveryGroup,
	}, true
}
