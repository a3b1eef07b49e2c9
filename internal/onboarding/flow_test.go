package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loxtr/console/internal/backend"
	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/workflow"
)

// stubAPI implements the calls onboarding makes; anything else panics
// through the nil embedded interface.
type stubAPI struct {
	backend.API

	mu         sync.Mutex
	me         backend.Profile
	bio        backend.Bio
	bioErr     error
	valueProp  string
	vpErr      error
	recs       []backend.MarketRecommendation
	icp        backend.BuyerProfile
	icpErr     error
	icpCalls   int
	updates    []backend.Profile
	submitErr  error
	discovered []backend.DiscoverRequest
}

func (s *stubAPI) Me(ctx context.Context) (backend.Profile, error) { return s.me, nil }

func (s *stubAPI) UpdateProfile(ctx context.Context, p backend.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.OnboardingCompleted && s.submitErr != nil {
		return s.submitErr
	}
	s.updates = append(s.updates, p)
	return nil
}

func (s *stubAPI) GenerateBio(ctx context.Context, website string) (backend.Bio, error) {
	return s.bio, s.bioErr
}

func (s *stubAPI) GenerateValueProp(ctx context.Context, req backend.ValuePropRequest) (string, error) {
	return s.valueProp, s.vpErr
}

func (s *stubAPI) RecommendMarkets(ctx context.Context, products []backend.Product, origin string) ([]backend.MarketRecommendation, error) {
	return s.recs, nil
}

func (s *stubAPI) GenerateBuyerProfile(ctx context.Context, products []backend.Product, countries []string) (backend.BuyerProfile, error) {
	s.mu.Lock()
	s.icpCalls++
	s.mu.Unlock()
	return s.icp, s.icpErr
}

func (s *stubAPI) DiscoverLeads(ctx context.Context, req backend.DiscoverRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discovered = append(s.discovered, req)
	return nil
}

// instantTimer fires immediately and records what was asked for.
type instantTimer struct {
	mu        sync.Mutex
	requested []time.Duration
}

func (t *instantTimer) After(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	t.requested = append(t.requested, d)
	t.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func fillProfile(p *backend.Profile) {
	p.Company = "Anatolia Stone"
	p.Name = "Ayse Demir"
	p.Industry = "Natural Stone"
	p.Website = "https://anatoliastone.com"
	p.Phone = "5551234567"
	p.Country = "Turkey"
}

func TestValidWebsite(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"anatoliastone.com", true},
		{"https://www.anatoliastone.com.tr/about", true},
		{"http://a-b.io", true},
		{"not a site", false},
		{"ftp://x.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidWebsite(tt.in))
		})
	}
}

func TestProfileStepRejectsBadWebsiteWithoutSaving(t *testing.T) {
	api := &stubAPI{}
	f := New(api, WithTimer((&instantTimer{}).After))
	require.NoError(t, f.Edit(func(p *backend.Profile) {
		fillProfile(p)
		p.Website = "not a site"
	}))

	err := f.Next(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.ValidationFailed))
	var fe *workflow.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "website", fe.Field)

	f.Wait()
	assert.Empty(t, api.updates)
	assert.Equal(t, StepProfile, f.Driver().Current())
}

func TestLoadResumesFromStoredProfile(t *testing.T) {
	tests := []struct {
		name string
		edit func(p *backend.Profile)
		want int
	}{
		{"empty profile", func(p *backend.Profile) {}, StepProfile},
		{"profile only", fillProfile, StepPortfolio},
		{"profile and products", func(p *backend.Profile) {
			fillProfile(p)
			p.ProductGroups = []backend.Product{{Name: "Marble", HSCode: "6802"}}
		}, StepStrategy},
		{"everything but plan", func(p *backend.Profile) {
			fillProfile(p)
			p.ProductGroups = []backend.Product{{Name: "Marble", HSCode: "6802"}}
			p.TargetMarkets = []string{"Germany"}
			p.TargetIndustries = []string{"Construction"}
			p.TargetJobTitles = []string{"Buyer"}
		}, StepPlans},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p backend.Profile
			tt.edit(&p)
			f := New(&stubAPI{me: p})
			require.NoError(t, f.Load(context.Background()))
			assert.Equal(t, tt.want, f.Driver().Current())
		})
	}
}

func TestFullFlowWithFallbacks(t *testing.T) {
	api := &stubAPI{
		bio: backend.Bio{Bio: "Quarry and factory in Afyon.", Products: []string{"marble tiles", "Travertine"}},
		recs: []backend.MarketRecommendation{
			{Country: "Germany", Score: 91, Selected: true},
			{Country: "France", Score: 80},
			{Country: "Italy", Score: 77, Selected: true},
		},
		vpErr:  errors.New("model offline"),
		icpErr: errors.New("model offline"),
	}
	timer := &instantTimer{}
	f := New(api, WithTimer(timer.After))
	ctx := context.Background()

	require.NoError(t, f.Edit(fillProfile))
	require.NoError(t, f.AddProduct(backend.Product{Name: "Marble Tiles", HSCode: "6802"}))
	require.NoError(t, f.Next(ctx))
	f.Wait()

	d := f.Draft()
	assert.Equal(t, "Quarry and factory in Afyon.", d.Profile.CompanyDescription)
	assert.Equal(t, []string{"Marble Tiles", "Travertine"}, backend.ProductNames(d.Profile.ProductGroups))

	require.NoError(t, f.Next(ctx))
	d = f.Draft()
	assert.Equal(t, FallbackValueProp("Anatolia Stone", "Natural Stone"), d.ValueProp)
	assert.Equal(t, []string{"Germany", "Italy"}, d.Profile.TargetMarkets)
	require.NoError(t, f.ToggleMarket("France"))
	assert.Equal(t, []string{"Germany", "France", "Italy"}, f.Draft().Profile.TargetMarkets)

	require.NoError(t, f.Next(ctx))
	d = f.Draft()
	assert.Equal(t, fallbackIndustries, d.Profile.TargetIndustries)
	assert.Equal(t, fallbackRoles, d.Profile.TargetJobTitles)

	require.NoError(t, f.Next(ctx))
	assert.Equal(t, StepPlans, f.Driver().Current())
	require.NoError(t, f.Next(ctx))
	f.Wait()

	assert.Equal(t, workflow.PhaseCompleted, f.Driver().Phase())
	require.Len(t, api.discovered, 1)
	assert.Equal(t, backend.DiscoverRequest{
		Product:       "Marble Tiles",
		TargetMarkets: []string{"Germany", "France", "Italy"},
		Industry:      "Wholesale Distributors",
		Count:         5,
		GroupName:     "Initial Research",
	}, api.discovered[0])

	timer.mu.Lock()
	assert.Equal(t, []time.Duration{5 * time.Second, 6 * time.Second, 8 * time.Second}, timer.requested)
	timer.mu.Unlock()

	api.mu.Lock()
	defer api.mu.Unlock()
	completed := 0
	for _, u := range api.updates {
		if u.OnboardingCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestBuyerProfileRunsOnce(t *testing.T) {
	api := &stubAPI{icp: backend.BuyerProfile{
		TargetIndustries: []backend.ICPEntry{{Name: "Construction", Selected: true}, {Name: "Hospitality"}},
		DecisionMakers:   []backend.ICPEntry{{Title: "Procurement Manager", Selected: true}},
	}}
	f := New(api, WithTimer((&instantTimer{}).After))
	ctx := context.Background()
	require.NoError(t, f.Edit(func(p *backend.Profile) {
		fillProfile(p)
		p.CompanyDescription = "Set by hand."
	}))
	require.NoError(t, f.AddProduct(backend.Product{Name: "Marble", HSCode: "6802"}))
	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.Next(ctx))
	require.NoError(t, f.ToggleMarket("Germany"))
	require.NoError(t, f.Next(ctx))

	assert.Equal(t, []string{"Construction"}, f.Draft().Profile.TargetIndustries)
	assert.Equal(t, []string{"Procurement Manager"}, f.Draft().Profile.TargetJobTitles)

	require.NoError(t, f.Driver().Back())
	require.NoError(t, f.Next(ctx))
	f.Wait()
	assert.Equal(t, 1, api.icpCalls)
}

func TestSubmitFailureKeepsPlansStep(t *testing.T) {
	rejected := apperrors.Remote(500, "could not save")
	p := backend.Profile{}
	fillProfile(&p)
	p.ProductGroups = []backend.Product{{Name: "Marble", HSCode: "6802"}}
	p.TargetMarkets = []string{"Germany"}
	p.TargetIndustries = []string{"Construction"}
	p.TargetJobTitles = []string{"Buyer"}

	api := &stubAPI{me: p, submitErr: rejected}
	f := New(api, WithTimer((&instantTimer{}).After))
	require.NoError(t, f.Load(context.Background()))

	err := f.Next(context.Background())
	assert.Same(t, rejected, err)
	assert.Equal(t, StepPlans, f.Driver().Current())
	assert.NotEqual(t, workflow.PhaseCompleted, f.Driver().Phase())
	assert.Empty(t, api.discovered)
}
