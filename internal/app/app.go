package app

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/alunashop/tienda/internal/adapters/httpserver"
	"github.com/alunashop/tienda/internal/adapters/mail"
	"github.com/alunashop/tienda/internal/adapters/payments/mercadopago"
	"github.com/alunashop/tienda/internal/adapters/repo/postgres"
	"github.com/alunashop/tienda/internal/domain"
	"github.com/alunashop/tienda/internal/kit"
	"github.com/alunashop/tienda/internal/shipping"
	"github.com/alunashop/tienda/internal/usecase"
)

type App struct {
	DB        *gorm.DB
	Catalog   *usecase.CatalogUC
	Orders    *usecase.OrderUC
	Payments  *usecase.PaymentUC
	Customers domain.CustomerRepo

	KitCfg   kit.Config
	KitIDs   *kit.IDAllocator
	Shipping *shipping.Resolver

	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	custRepo := postgres.NewCustomerRepo(db)

	token := os.Getenv("MP_ACCESS_TOKEN")
	appEnv := strings.ToLower(os.Getenv("APP_ENV"))
	if appEnv == "production" || appEnv == "prod" {
		if prodTok := os.Getenv("PROD_ACCESS_TOKEN"); prodTok != "" {
			token = prodTok
		}
	}
	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	gateway := mercadopago.NewGateway(token, baseURL)

	smtpPort := envInt("SMTP_PORT", 587)
	mailer := mail.New(os.Getenv("SMTP_HOST"), smtpPort, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASS"), os.Getenv("SMTP_FROM"), os.Getenv("SMTP_BCC"))

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	kitCfg := kit.Config{
		MaxItems:          envInt("KIT_MAX_ITEMS", 8),
		MinOrderAmount:    envFloat("KIT_MIN_ORDER_AMOUNT", 12000),
		DiscountThreshold: envFloat("KIT_DISCOUNT_THRESHOLD", 20000),
		DiscountPct:       envFloat("KIT_DISCOUNT_PCT", 10),
		IDBase:            int64(envInt("KIT_ID_BASE", 1_000_000_000)),
	}

	a := &App{
		DB:          db,
		Catalog:     &usecase.CatalogUC{Products: prodRepo},
		Orders:      &usecase.OrderUC{Orders: orderRepo},
		Payments:    &usecase.PaymentUC{Orders: orderRepo, Gateway: gateway, Mailer: mailer},
		Customers:   custRepo,
		KitCfg:      kitCfg,
		KitIDs:      kit.NewIDAllocator(kitCfg.IDBase),
		Shipping:    shipping.NewResolver(shipping.DefaultZones()),
		OAuthConfig: oauthCfg,
	}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Catalog, a.Orders, a.Payments, a.Shipping, a.KitCfg, a.KitIDs, a.Customers, a.OAuthConfig)
}

func (a *App) MigrateAndSeed() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Image{}, &domain.KitItem{},
		&domain.Order{}, &domain.OrderItem{}, &domain.Customer{},
	); err != nil {
		return err
	}

	var count int64
	if err := a.DB.Model(&domain.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		seedCatalog(a.DB)
	}
	return nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func intPtr(n int) *int { return &n }

func seedCatalog(db *gorm.DB) {
	prods := []domain.Product{
		{Slug: "serum-vitamina-c", Name: "Sérum Vitamina C", Price: 14500, Category: "skincare", ShortDesc: "Ilumina y empareja el tono", Stock: intPtr(25), Active: true},
		{Slug: "crema-hidratante-acido-hialuronico", Name: "Crema Hidratante Ácido Hialurónico", Price: 12900, Category: "skincare", ShortDesc: "Hidratación profunda 24 hs", Stock: intPtr(40), Active: true},
		{Slug: "protector-solar-fps50", Name: "Protector Solar FPS 50", Price: 11200, Category: "skincare", Tones: []string{"Claro", "Medio", "Oscuro"}, Stock: intPtr(30), Active: true},
		{Slug: "anillo-luna-plata", Name: "Anillo Luna Plata 925", Price: 18900, Category: "joyas", ModelNumber: "AL-201", Sizes: []string{"14", "15", "16", "17"}, Active: true},
		{Slug: "collar-estrella", Name: "Collar Estrella", Price: 21500, Category: "joyas", ModelNumber: "CO-115", Colors: []string{"Dorado", "Plateado"}, Stock: intPtr(12), Active: true},
		{Slug: "aros-argolla", Name: "Aros Argolla", Price: 9800, Category: "joyas", ModelNumber: "AR-042", Colors: []string{"Dorado", "Plateado", "Rosé"}, Active: true},
		{
			Slug: "kit-rutina-basica", Name: "Kit Rutina Básica", Price: 32900, OldPrice: 38600, DiscountPct: 15,
			Category: "kits", ShortDesc: "Limpieza, hidratación y protección", Stock: intPtr(10), Active: true,
			Items: []domain.KitSlot{
				{Name: "Gel de limpieza", Quantity: 1},
				{Name: "Crema hidratante", Quantity: 1},
				{Name: "Protector solar", Quantity: 1, Colors: []string{"Claro", "Medio", "Oscuro"}},
			},
		},
	}
	for i := range prods {
		db.Create(&prods[i])
	}

	items := []domain.KitItem{
		{Name: "Gel de limpieza suave", Price: 6900, Category: "limpieza", Benefits: []string{"Piel sensible", "Sin sulfatos"}, Stock: 50},
		{Name: "Agua micelar", Price: 5400, Category: "limpieza", Benefits: []string{"Desmaquilla", "Sin enjuague"}, Stock: 35},
		{Name: "Sérum niacinamida", Price: 8900, Category: "tratamiento", Benefits: []string{"Controla brillo", "Minimiza poros"}, Stock: 40},
		{Name: "Sérum vitamina C", Price: 9800, Category: "tratamiento", Benefits: []string{"Ilumina", "Antioxidante"}, Stock: 28},
		{Name: "Crema hidratante liviana", Price: 7200, Category: "hidratacion", Benefits: []string{"No comedogénica"}, Stock: 45},
		{Name: "Manteca corporal", Price: 6600, Category: "hidratacion", Benefits: []string{"Nutrición intensa"}, Stock: 30},
		{Name: "Protector solar FPS 50", Price: 8400, Category: "proteccion", Benefits: []string{"Toque seco"}, Stock: 38},
		{Name: "Bálsamo labial", Price: 3200, Category: "proteccion", Benefits: []string{"Con FPS 30"}, Stock: 60},
	}
	for i := range items {
		db.Create(&items[i])
	}
}
