package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyProcess            = "process"
	KeyTag                = "tag"
	KeyConfig             = "config"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyResponseStatusCode = "responseStatusCode"
	KeySessionKey         = "sessionKey"
	KeyUserID             = "userId"
	KeyCacheKey           = "cacheKey"
	KeyCart               = "cart"
	KeyCartID             = "cartId"
	KeyCartItemID         = "cartItemId"
	KeyCartItemQuantity   = "cartItemQuantity"
	KeyCartTotalItems     = "cartTotalItems"
	KeyCartShape          = "cartShape"
	KeyProductID          = "productId"
	KeyCouponCode         = "couponCode"
	KeyDeliveryPincode    = "deliveryPincode"
	KeyPickupPincode      = "pickupPincode"
	KeyPaymentMethod      = "paymentMethod"
	KeyFetchSequence      = "fetchSequence"
	KeyState              = "state"
	KeyInterState         = "interState"
	KeyOrderID            = "orderId"
	KeyTaxSource          = "taxSource"
	KeyHSNCode            = "hsnCode"
	KeyURL                = "url"
)
