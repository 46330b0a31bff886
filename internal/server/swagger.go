package server

//go:generate swag init -g swagger.go --parseDependency --parseInternal -o docs

// @title PhishLens API
// @version 0.1
// @description Phishing-risk scoring, scan history and the abuse-report ledger.
// @contact.name PhishLens Maintainers
// @contact.url https://github.com/raysh454/phishlens
// @BasePath /
