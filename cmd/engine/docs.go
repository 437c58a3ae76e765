package main

//go:generate swag init -g cmd/engine/main.go -o docs

// @title           News Sentiment Engine API
// @version         0.1.0
// @description     Article ingestion, per-ticker sentiment scoring, and horizon forecast reconciliation.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
