package constants

const (
	AppStorefront        = "storefront"
	AppStorefrontGateway = "storefront-gateway"
	AppCartStore         = "cart-store"
	AppTaxService        = "tax-service"
)
