package constants

const (
	APP_MAIN_STOREFRONT      = "main storefront"
	APP_USER_SERVICE         = "user-service"
	APP_PRODUCT_SERVICE      = "product-service"
	APP_CART_SERVICE         = "cart-service"
	APP_PAYMENT_SERVICE      = "payment-service"
	APP_NOTIFICATION_SERVICE = "notification-service"
	APP_SHOP_CLIENT          = "shop-client"
	AUDIENCE_USER            = "audience-user"
)
