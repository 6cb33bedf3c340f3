package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	apiclient "github.com/HaVuDong/ecome-customer-app/internal/api"
	"github.com/HaVuDong/ecome-customer-app/internal/auth"
	"github.com/HaVuDong/ecome-customer-app/internal/cache"
	"github.com/HaVuDong/ecome-customer-app/internal/cart"
	"github.com/HaVuDong/ecome-customer-app/internal/checkout"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/HaVuDong/ecome-customer-app/internal/service"
	"github.com/HaVuDong/ecome-customer-app/internal/tracking"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Configuration
	apiBaseURL := getEnv("STOREFRONT_API_URL", "http://localhost:8080/api")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	authToken := getEnv("CUSTOMER_TOKEN", "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := auth.NewSession()
	if authToken != "" {
		session.SetCredentials(authToken, nil)
	}

	client := apiclient.NewClient(apiBaseURL, session)

	var cartCache cache.CartCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, running without cart cache: %v", err)
	} else {
		log.Printf("Redis ping succeeded")
		cartCache = cache.NewRedisCache(redisClient)
	}

	var sink tracking.Sink = tracking.LogSink{}
	if kafkaBrokers != "" {
		kafkaSink := tracking.NewKafkaSink("customer-app-events", kafkaBrokers)
		defer kafkaSink.Close()
		sink = kafkaSink
	}

	cartAPI := service.NewCartService(client)
	payments := service.NewPaymentService(client)
	store := cart.NewStore(cartAPI, session, cartCache, sink)
	flow := checkout.NewFlow(store, checkout.NewOrchestrator(cartAPI), payments, sink)

	if err := store.Load(ctx); err != nil {
		log.Fatalf("Failed to load cart: %v", err)
	}

	current := store.Cart()
	log.Printf("Cart loaded: %d lines, %d units, total %d, selected %d",
		len(current.Items), current.TotalItems(), current.TotalAmount(), current.SelectedTotal())
	for _, group := range current.GroupBySeller() {
		log.Printf("  seller %s (%d): %d lines, subtotal %d",
			group.SellerName, group.SellerID, len(group.Items), group.Subtotal)
	}

	if getEnv("DEMO_CHECKOUT", "") == "1" {
		runDemoCheckout(ctx, flow, session)
	}

	<-ctx.Done()
	log.Println("Customer app stopped")
}

// runDemoCheckout submits the current selection as a COD order. QR payment
// needs an interactive bank transfer, so the demo stays on cash on delivery.
func runDemoCheckout(ctx context.Context, flow *checkout.Flow, session *auth.Session) {
	shipping := session.DefaultShipping()
	result, err := flow.PlaceOrder(ctx, shipping, domain.PaymentMethodCOD, "")
	if err != nil {
		log.Printf("Checkout failed: %v", err)
		return
	}
	log.Printf("Checkout done: %d order(s), outcome %s", len(result.Orders), result.Outcome)
	for _, order := range result.Orders {
		log.Printf("  order %s seller=%s total=%d fee=%d", order.OrderCode, order.SellerName, order.TotalAmount, order.ShippingFee)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
