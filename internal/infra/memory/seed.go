package memory

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/poa-mx/poa-insights-go/internal/domain"
)

// Fixed demo company IDs so dashboard URLs survive reseeding.
const (
	StableCompanyID = "11111111-1111-4111-8111-111111111111"
	AtRiskCompanyID = "22222222-2222-4222-8222-222222222222"
	MixedCompanyID  = "33333333-3333-4333-8333-333333333333"
)

// DemoEmail and DemoPassword are the seeded login credentials.
const (
	DemoEmail    = "demo@poa.mx"
	DemoPassword = "demo1234"
)

var ivaRate = decimal.NewFromFloat(0.16)

type scenarioSpec struct {
	key            string
	companyID      string
	legalName      string
	taxID          string
	sector         string
	size           string
	regime         string
	regimeName     string
	postalCode     string
	classification string
	description    string

	// baseIncome is month-1 income volume; monthlyGrowth shapes the
	// following months.
	baseIncome    float64
	monthlyGrowth []float64
	voidRate      float64
	healthScore   [8]int // liquidity, compliance, diversification, trend, margin, seasonality, receivables, supplier

	clients   []counterparty
	suppliers []counterparty
	// clientBias skews income toward the first client to exercise
	// the concentration signal.
	clientBias float64

	alerts []domain.FiscalAlert
}

type counterparty struct {
	taxID string
	name  string
}

// snapshot converts the scenario's component scores into a snapshot.
func (spec scenarioSpec) snapshot() *domain.HealthScoreSnapshot {
	return &domain.HealthScoreSnapshot{
		Liquidity:             spec.healthScore[0],
		FiscalCompliance:      spec.healthScore[1],
		ClientDiversification: spec.healthScore[2],
		RevenueTrend:          spec.healthScore[3],
		OperatingMargin:       spec.healthScore[4],
		Seasonality:           spec.healthScore[5],
		ReceivablesAging:      spec.healthScore[6],
		SupplierRisk:          spec.healthScore[7],
	}
}

func scenarioSpecs() []scenarioSpec {
	return []scenarioSpec{
		{
			key:            domain.ClassStable,
			companyID:      StableCompanyID,
			legalName:      "Distribuidora El Águila SA de CV",
			taxID:          "DEA150312QX8",
			sector:         "Comercio mayorista",
			size:           "small",
			regime:         "601",
			regimeName:     "General de Ley Personas Morales",
			postalCode:     "64000",
			classification: domain.ClassStable,
			description:    "Healthy distributor with steady growth and a diversified client base.",
			baseIncome:     850000,
			monthlyGrowth:  []float64{1.0, 1.03, 1.02, 1.04, 1.01, 1.05, 1.03, 1.04},
			voidRate:       0.02,
			healthScore:    [8]int{88, 92, 80, 85, 78, 82, 90, 84},
			clientBias:     0.18,
			clients: []counterparty{
				{"FAR120601T56", "Farmacias del Centro SA de CV"},
				{"ABC980214RH1", "Abarrotes y Conservas del Bajío"},
				{"SUP050823KL9", "Supermercados La Norteña"},
				{"TIE110304MN2", "Tiendas Riviera SA de CV"},
				{"COM071119PQ4", "Comercial Santa Fe"},
				{"MIN130725ZD6", "Minisuper El Trébol"},
			},
			suppliers: []counterparty{
				{"PRO060412AB3", "Procesadora de Alimentos del Norte"},
				{"TRA091108CD5", "Transportes Águila Veloz"},
				{"EMP140219EF7", "Empaques Industriales de Monterrey"},
				{"SER100530GH9", "Servicios Logísticos Carranza"},
			},
			alerts: []domain.FiscalAlert{
				{
					Category:   domain.AlertReconciliation,
					Severity:   domain.SeverityYellow,
					Title:      "Pago sin factura relacionada",
					Detail:     "2 depósitos del último mes no tienen CFDI emitido.",
					ContextRaw: `{"example":"Depósito de $45,000 del 12 del mes pasado sin CFDI","recommended_action":"Emite la factura correspondiente o registra el complemento de pago"}`,
				},
			},
		},
		{
			key:            domain.ClassAtRisk,
			companyID:      AtRiskCompanyID,
			legalName:      "Constructora Cimientos del Norte SA de CV",
			taxID:          "CCN091125HT4",
			sector:         "Construcción",
			size:           "medium",
			regime:         "601",
			regimeName:     "General de Ley Personas Morales",
			postalCode:     "31000",
			classification: domain.ClassAtRisk,
			description:    "Contractor with falling revenue, one dominant client and compliance gaps.",
			baseIncome:     1200000,
			monthlyGrowth:  []float64{1.0, 0.96, 0.91, 0.88, 0.93, 0.85, 0.82, 0.87},
			voidRate:       0.06,
			healthScore:    [8]int{35, 40, 25, 30, 45, 50, 38, 42},
			clientBias:     0.55,
			clients: []counterparty{
				{"INM080915JW2", "Inmobiliaria Torres del Valle"},
				{"GOB000101XY1", "Obras Públicas Municipales"},
				{"DES120607KL3", "Desarrollos Horizonte SA de CV"},
			},
			suppliers: []counterparty{
				{"CEM050310MN5", "Cementos y Agregados Chihuahua"},
				{"ACE110822OP7", "Aceros del Septentrión"},
				{"MAQ071204QR9", "Maquinaria Pesada del Norte"},
				{"FER090518ST1", "Ferretería Industrial Juárez"},
				{"ELE130926UV3", "Instalaciones Eléctricas Falcón"},
			},
			alerts: []domain.FiscalAlert{
				{
					Category:   domain.AlertDeclaration,
					Severity:   domain.SeverityRed,
					Title:      "Declaración mensual vencida",
					Detail:     "La declaración de IVA del mes anterior no ha sido presentada.",
					ContextRaw: `{"example":"Declaración de agosto vencida desde el día 17","recommended_action":"Presenta la declaración de inmediato para evitar multas y recargos"}`,
				},
				{
					Category:   domain.AlertBlacklist,
					Severity:   domain.SeverityRed,
					Title:      "Proveedor en lista 69-B",
					Detail:     "Un proveedor con facturas activas aparece como presunto EFOS.",
					ContextRaw: `{"example":"Maquinaria Pesada del Norte figura en el listado presunto del SAT","recommended_action":"Suspende operaciones con el proveedor y acredita la materialidad de las operaciones"}`,
				},
				{
					Category:   domain.AlertCancellation,
					Severity:   domain.SeverityYellow,
					Title:      "Tasa de cancelación elevada",
					Detail:     "Las cancelaciones superan el promedio del sector en el trimestre.",
					ContextRaw: `{"example":"6% de las facturas emitidas fueron canceladas","recommended_action":"Revisa tu proceso de emisión para reducir errores de captura"}`,
				},
				{
					Category:   domain.AlertConcentration,
					Severity:   domain.SeverityRed,
					Title:      "Cliente dominante",
					Detail:     "Más de la mitad del ingreso proviene de un solo cliente.",
					ContextRaw: `{"example":"Inmobiliaria Torres del Valle concentra el 55% del ingreso","recommended_action":"Diversifica tu cartera para reducir el riesgo de dependencia"}`,
				},
			},
		},
		{
			key:            domain.ClassMixed,
			companyID:      MixedCompanyID,
			legalName:      "Servicios Creativos Lumen SC",
			taxID:          "SCL170208WB6",
			sector:         "Servicios profesionales",
			size:           "micro",
			regime:         "626",
			regimeName:     "Régimen Simplificado de Confianza",
			postalCode:     "06700",
			classification: domain.ClassMixed,
			description:    "Design studio with irregular cash flow and moderate client concentration.",
			baseIncome:     320000,
			monthlyGrowth:  []float64{1.0, 1.08, 0.92, 1.12, 0.88, 1.05, 0.95, 1.06},
			voidRate:       0.03,
			healthScore:    [8]int{60, 75, 55, 62, 70, 48, 65, 72},
			clientBias:     0.28,
			clients: []counterparty{
				{"AGE100413YZ8", "Agencia de Medios Altavista"},
				{"EDI060927AB0", "Editorial Faro del Sur"},
				{"TEC141105CD2", "Tecnologías Nube Azul SA de CV"},
				{"RES121220EF4", "Restaurantes Casa Mía"},
			},
			suppliers: []counterparty{
				{"SOF080716GH6", "Software y Licencias de México"},
				{"IMP050209IJ8", "Imprenta Digital Roma"},
				{"REN160830KL0", "Renta de Espacios Condesa"},
			},
			alerts: []domain.FiscalAlert{
				{
					Category:   domain.AlertConcentration,
					Severity:   domain.SeverityYellow,
					Title:      "Concentración de ingresos moderada",
					Detail:     "El cliente principal se acerca al umbral de riesgo.",
					ContextRaw: `{"example":"Agencia de Medios Altavista representa el 28% del ingreso","recommended_action":"Busca nuevos clientes antes de que la dependencia crezca"}`,
				},
				{
					Category:   domain.AlertLiquidity,
					Severity:   domain.SeverityYellow,
					Title:      "Flujo de efectivo irregular",
					Detail:     "Dos de los últimos seis meses cerraron con flujo negativo.",
					ContextRaw: `{"example":"El mes con menor ingreso cerró con flujo de -$41,000","recommended_action":"Constituye una reserva equivalente a un mes de gastos"}`,
				},
			},
		},
	}
}

// Scenarios describes the available demo scenarios.
func (s *Store) Scenarios() []domain.ScenarioInfo {
	var out []domain.ScenarioInfo
	weights := domain.DefaultScoreWeights()
	for _, spec := range scenarioSpecs() {
		out = append(out, domain.ScenarioInfo{
			Key:         spec.key,
			Name:        spec.legalName,
			Description: spec.description,
			Sector:      spec.sector,
			HealthScore: domain.WeightedTotal(spec.snapshot(), weights),
		})
	}
	return out
}

// Seed loads synthetic demo data. scenario selects a single scenario
// key, or "all" (and "") for every scenario. Reseeding an existing
// scenario replaces its data.
func (s *Store) Seed(ctx context.Context, scenario string) (*domain.SeedStats, error) {
	stats := &domain.SeedStats{}

	specs := scenarioSpecs()
	if scenario != "" && scenario != "all" {
		var filtered []scenarioSpec
		for _, spec := range specs {
			if spec.key == scenario {
				filtered = append(filtered, spec)
			}
		}
		if len(filtered) == 0 {
			return nil, &domain.ErrValidation{Field: "scenario", Message: fmt.Sprintf("unknown scenario %q", scenario)}
		}
		specs = filtered
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.seedScenario(spec, stats)
	}

	if err := s.seedDemoUser(stats); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Store) seedScenario(spec scenarioSpec, stats *domain.SeedStats) {
	// Deterministic per scenario so repeated seeds are reproducible.
	rng := rand.New(rand.NewSource(int64(len(spec.taxID)) * 7919))

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	s.dropScenario(spec.companyID)

	lastSync := now.Add(-2 * time.Hour)
	s.AddCompany(domain.Company{
		ID:               spec.companyID,
		TaxID:            spec.taxID,
		LegalName:        spec.legalName,
		FiscalRegime:     spec.regime,
		FiscalRegimeName: spec.regimeName,
		PostalCode:       spec.postalCode,
		Sector:           spec.sector,
		Size:             spec.size,
		SyncConnected:    true,
		LastSyncAt:       &lastSync,
		Classification:   spec.classification,
		DemoScenario:     spec.key,
		CreatedAt:        now.AddDate(0, -8, 0),
	})
	stats.Companies++

	var invoices []domain.Invoice
	months := len(spec.monthlyGrowth)
	for i := 0; i < months; i++ {
		// Oldest month first: i=0 is (months-1) months ago.
		start := monthStart.AddDate(0, i-months+1, 0)
		income := spec.baseIncome * spec.monthlyGrowth[i]
		expense := income * (0.55 + rng.Float64()*0.15)

		invoices = append(invoices, s.monthInvoices(spec, rng, start, income, domain.KindIncome)...)
		invoices = append(invoices, s.monthInvoices(spec, rng, start, expense, domain.KindExpense)...)
	}
	s.AddInvoices(invoices...)
	stats.Invoices += len(invoices)

	periodStart := monthStart.AddDate(0, 1-months, 0)
	periodEnd := monthStart.AddDate(0, 1, 0)

	snap := spec.snapshot()
	snap.ID = uuid.NewString()
	snap.CompanyID = spec.companyID
	snap.PeriodStart = &periodStart
	snap.PeriodEnd = &periodEnd
	snap.CreatedAt = now
	snap.Total = domain.WeightedTotal(snap, domain.DefaultScoreWeights())
	// The in-memory InsertScore cannot fail.
	_ = s.InsertScore(context.Background(), snap)
	stats.Scores++

	for i, alert := range spec.alerts {
		alert.ID = uuid.NewString()
		alert.CompanyID = spec.companyID
		alert.Resolution = domain.ResolutionPending
		alert.CreatedAt = now.Add(-time.Duration(i+1) * 24 * time.Hour)
		s.AddAlert(alert)
		stats.Alerts++
	}
}

// monthInvoices spreads a monetary volume over a month of invoices.
// Income invoices are issued by the company, expenses received.
// Roughly voidRate of income documents end up voided.
func (s *Store) monthInvoices(spec scenarioSpec, rng *rand.Rand, start time.Time, volume float64, kind domain.InvoiceKind) []domain.Invoice {
	count := 18 + rng.Intn(10)
	if kind == domain.KindExpense {
		count = 8 + rng.Intn(6)
	}

	var out []domain.Invoice
	remaining := volume
	for i := 0; i < count; i++ {
		share := remaining / float64(count-i)
		amount := share * (0.6 + rng.Float64()*0.8)
		if i == count-1 {
			amount = remaining
		}
		remaining -= amount
		if amount < 100 {
			amount = 100 + rng.Float64()*400
		}

		subtotal := decimal.NewFromFloat(amount).Round(2)
		tax := subtotal.Mul(ivaRate).Round(2)
		total := subtotal.Add(tax)

		issued := start.Add(time.Duration(rng.Intn(28*24)) * time.Hour)
		stamped := issued.Add(time.Duration(1+rng.Intn(30)) * time.Minute)

		inv := domain.Invoice{
			ID:            uuid.NewString(),
			Folio:         fmt.Sprintf("%d", 1000+rng.Intn(90000)),
			Series:        "A",
			Kind:          kind,
			Status:        domain.StatusValid,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         total,
			Currency:      "MXN",
			IssuedAt:      issued,
			StampedAt:     &stamped,
			UsageCode:     "G03",
			PaymentMethod: "PUE",
			PaymentForm:   "03",
			CompanyID:     spec.companyID,
			CreatedAt:     stamped,
		}

		if kind == domain.KindIncome {
			client := pickCounterparty(spec.clients, rng, spec.clientBias)
			inv.IssuerTaxID = spec.taxID
			inv.IssuerName = spec.legalName
			inv.ReceiverTaxID = client.taxID
			inv.ReceiverName = client.name
			if rng.Float64() < 0.25 {
				inv.PaymentMethod = "PPD"
				inv.PaymentForm = "99"
			}
			if rng.Float64() < spec.voidRate {
				voided := issued.Add(time.Duration(1+rng.Intn(72)) * time.Hour)
				inv.Status = domain.StatusVoided
				inv.VoidedAt = &voided
			}
		} else {
			supplier := spec.suppliers[rng.Intn(len(spec.suppliers))]
			inv.IssuerTaxID = supplier.taxID
			inv.IssuerName = supplier.name
			inv.ReceiverTaxID = spec.taxID
			inv.ReceiverName = spec.legalName
		}

		out = append(out, inv)
	}
	return out
}

// pickCounterparty favors the first client with probability bias.
func pickCounterparty(pool []counterparty, rng *rand.Rand, bias float64) counterparty {
	if len(pool) == 1 || rng.Float64() < bias {
		return pool[0]
	}
	return pool[1+rng.Intn(len(pool)-1)]
}

func (s *Store) seedDemoUser(stats *domain.SeedStats) error {
	if _, err := s.GetUserByEmail(context.Background(), DemoEmail); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), 12)
	if err != nil {
		return err
	}

	if err := s.CreateUser(context.Background(), &domain.User{
		ID:           uuid.NewString(),
		Email:        DemoEmail,
		FullName:     "Usuario Demo",
		PasswordHash: string(hash),
		Role:         "owner",
	}); err != nil {
		return err
	}
	stats.Users++
	return nil
}

// dropScenario removes a company's previous demo data.
func (s *Store) dropScenario(companyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.invoices[:0]
	for _, inv := range s.invoices {
		if inv.CompanyID != companyID {
			kept = append(kept, inv)
		}
	}
	s.invoices = kept
	delete(s.companies, companyID)
	delete(s.scores, companyID)
	delete(s.alerts, companyID)
}
