package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paywatch.backend/internal/interfaces/http/handlers"
	"paywatch.backend/internal/interfaces/http/middleware"
)

func setupRouter(paymentRequestHandler *handlers.PaymentRequestHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/payment-requests", paymentRequestHandler.CreatePaymentRequest)
		v1.GET("/payment-requests/:id", paymentRequestHandler.GetPaymentRequest)
	}

	return r
}
