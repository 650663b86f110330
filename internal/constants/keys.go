package constants

const (
	KEY_APP_NAME           = "app"
	KEY_BODY               = "body"
	KEY_CACHE_KEY          = "cacheKey"
	KEY_CART               = "cart"
	KEY_CART_LINE          = "cartLine"
	KEY_CART_LINES         = "cartLines"
	KEY_CART_ITEMS_COUNT   = "cartItemsCount"
	KEY_CART_TOTAL         = "cartTotal"
	KEY_CHECKOUT           = "checkout"
	KEY_CONFIG             = "config"
	KEY_EMAIL              = "email"
	KEY_ERROR_CODE         = "errorCode"
	KEY_HEADER             = "header"
	KEY_JSON_CACHE         = "jsonCache"
	KEY_LATENCY            = "latency"
	KEY_LIMIT              = "limit"
	KEY_ORDER              = "order"
	KEY_ORDER_NUMBER       = "orderNumber"
	KEY_PATH_VALUES        = "pathValues"
	KEY_PAYMENT_INTENT_ID  = "paymentIntentId"
	KEY_PAYMENT_METHOD     = "paymentMethod"
	KEY_PROCESS            = "process"
	KEY_PRODUCT            = "product"
	KEY_PRODUCT_ID         = "productId"
	KEY_PRODUCTS           = "products"
	KEY_QUANTITY           = "quantity"
	KEY_QUERY              = "query"
	KEY_REQUEST            = "request"
	KEY_REQUEST_BODY       = "requestBody"
	KEY_REQUEST_HOST       = "host"
	KEY_REQUEST_ID         = "requestId"
	KEY_REQUEST_IP         = "requesterIp"
	KEY_REQUEST_METHOD     = "requestMethod"
	KEY_REQUEST_URI        = "requestUri"
	KEY_REQUEST_URL        = "requestUrl"
	KEY_RESPONSE           = "response"
	KEY_SESSION            = "session"
	KEY_SKIP               = "skip"
	KEY_SLOT_KEY           = "slotKey"
	KEY_SPAN_ID            = "spanId"
	KEY_STATUS_CODE        = "statusCode"
	KEY_TAG                = "tag"
	KEY_TOKEN              = "token"
	KEY_TOKEN_ID           = "tokenId"
	KEY_TOPIC              = "topic"
	KEY_TOTAL              = "total"
	KEY_TRACE_ID           = "traceId"
	KEY_URL                = "url"
	KEY_USER_ID            = "userId"
	KEY_HEADER_REQUEST_ID  = "X-Request-Id"
	KEY_HEADER_AUTH        = "Authorization"
	KEY_HEADER_CONTENT     = "Content-Type"
	VALUE_APPLICATION_JSON = "application/json"
	VALUE_FORM_URLENCODED  = "application/x-www-form-urlencoded"
)
