package handlers

// @title Taxlator API
// @version 1.0
// @description Nigerian tax calculators (PAYE/PIT, freelancer income, company income tax and VAT)
// @description with accounts and calculation history

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name tax
// @tag.description Income and company tax calculations

// @tag.name vat
// @tag.description VAT calculations

// @tag.name history
// @tag.description Calculation history of signed in users

// @tag.name auth
// @tag.description Account and token operations
