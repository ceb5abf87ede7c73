package server

//go:generate swag init -g internal/server/swagger.go -o docs/swagger

// @title StayScore API
// @version 0.1
// @description Batch website audit orchestration and scoring API.
// @BasePath /
