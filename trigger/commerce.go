package trigger

import (
	"encoding/json"

	"github.com/pkg/errors"

	M "relaytrack/model"
	"relaytrack/track"
	U "relaytrack/util"
)

// Canonical commerce event names emitted to the collector.
const (
	EventProductViewed     = "Product Viewed"
	EventProductAdded      = "Product Added"
	EventProductRemoved    = "Product Removed"
	EventCartViewed        = "Cart Viewed"
	EventCheckoutStarted   = "Checkout Started"
	EventOrderCompleted    = "Order Completed"
	EventOrderUpdated      = "Order Updated"
	EventOrderRefunded     = "Order Refunded"
	EventOrderCancelled    = "Order Cancelled"
	EventCouponApplied     = "Coupon Applied"
	EventCouponRemoved     = "Coupon Removed"
	EventProductsSearched  = "Products Searched"
	EventProductListViewed = "Product List Viewed"
)

// ProductPayload holds the fields the CMS extracts from its product
// objects. Extraction itself stays on the CMS side.
type ProductPayload struct {
	ProductID string  `json:"product_id"`
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	URL       string  `json:"url"`
	Category  string  `json:"category"`
	Brand     string  `json:"brand"`
	Variant   string  `json:"variant"`
	ImageURL  string  `json:"image_url"`
	Position  int     `json:"position"`
	CartID    string  `json:"cart_id"`
}

func (payload *ProductPayload) properties() U.PropertiesMap {
	properties := U.PropertiesMap{
		"product_id": payload.ProductID,
		"sku":        payload.SKU,
		"name":       payload.Name,
		"price":      payload.Price,
		"quantity":   payload.Quantity,
		"url":        payload.URL,
	}

	if payload.Category != "" {
		properties["category"] = payload.Category
	}
	if payload.Brand != "" {
		properties["brand"] = payload.Brand
	}
	if payload.Variant != "" {
		properties["variant"] = payload.Variant
	}
	if payload.ImageURL != "" {
		properties["image_url"] = payload.ImageURL
	}
	if payload.Position > 0 {
		properties["position"] = payload.Position
	}
	if payload.CartID != "" {
		properties["cart_id"] = payload.CartID
	}

	return properties
}

func productsAsProperties(products []ProductPayload) []U.PropertiesMap {
	list := make([]U.PropertiesMap, 0, len(products))
	for i := range products {
		list = append(list, products[i].properties())
	}
	return list
}

type CartPayload struct {
	CartID   string           `json:"cart_id"`
	Value    float64          `json:"value"`
	Currency string           `json:"currency"`
	Products []ProductPayload `json:"products"`
}

type CheckoutPayload struct {
	OrderID  string           `json:"order_id"`
	Value    float64          `json:"value"`
	Revenue  float64          `json:"revenue"`
	Shipping float64          `json:"shipping"`
	Tax      float64          `json:"tax"`
	Discount float64          `json:"discount"`
	Currency string           `json:"currency"`
	Coupon   string           `json:"coupon"`
	Products []ProductPayload `json:"products"`
}

type OrderPayload struct {
	OrderID     string           `json:"order_id"`
	CustomerID  string           `json:"customer_id"`
	Affiliation string           `json:"affiliation"`
	Value       float64          `json:"value"`
	Revenue     float64          `json:"revenue"`
	Shipping    float64          `json:"shipping"`
	Tax         float64          `json:"tax"`
	Discount    float64          `json:"discount"`
	Currency    string           `json:"currency"`
	Coupon      string           `json:"coupon"`
	Products    []ProductPayload `json:"products"`
}

func (payload *OrderPayload) properties() U.PropertiesMap {
	properties := U.PropertiesMap{
		"order_id":    payload.OrderID,
		"affiliation": payload.Affiliation,
		"value":       payload.Value,
		"revenue":     payload.Revenue,
		"shipping":    payload.Shipping,
		"tax":         payload.Tax,
		"discount":    payload.Discount,
		"currency":    payload.Currency,
		"products":    productsAsProperties(payload.Products),
	}
	if payload.Coupon != "" {
		properties["coupon"] = payload.Coupon
	}
	return properties
}

type CouponPayload struct {
	CouponID string           `json:"coupon_id"`
	CartID   string           `json:"cart_id"`
	Discount float64          `json:"discount"`
	Products []ProductPayload `json:"products"`
}

type SearchPayload struct {
	Query string `json:"query"`
}

type ProductListPayload struct {
	ListID   string           `json:"list_id"`
	Category string           `json:"category"`
	Products []ProductPayload `json:"products"`
}

func commerceFlag(selector func(settings *M.TrackingSettings) bool) func(*M.TrackingSettings) bool {
	return func(settings *M.TrackingSettings) bool {
		return settings.CommerceEnabled && selector(settings)
	}
}

func registerProductTrigger(kind Kind, eventName string,
	enabled func(settings *M.TrackingSettings) bool) {

	register(kind, definition{
		enabled: commerceFlag(enabled),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload ProductPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrapf(err, "invalid %s payload", kind)
			}

			event, err := track.BuildTrack(eventName, payload.properties(), "",
				settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})
}

func registerOrderTrigger(kind Kind, eventName string,
	enabled func(settings *M.TrackingSettings) bool) {

	register(kind, definition{
		enabled: commerceFlag(enabled),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload OrderPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrapf(err, "invalid %s payload", kind)
			}

			// Order events are attributed to the purchasing customer.
			event, err := track.BuildTrack(eventName, payload.properties(),
				payload.CustomerID, settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})
}

func registerCouponTrigger(kind Kind, eventName string, withDiscount bool) {
	register(kind, definition{
		enabled: commerceFlag(func(settings *M.TrackingSettings) bool {
			return settings.TrackCouponEvents
		}),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload CouponPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrapf(err, "invalid %s payload", kind)
			}

			properties := U.PropertiesMap{
				"coupon_id": payload.CouponID,
				"cart_id":   payload.CartID,
				"name":      payload.CouponID,
				"products":  productsAsProperties(payload.Products),
			}
			if withDiscount {
				properties["discount"] = payload.Discount
			}

			event, err := track.BuildTrack(eventName, properties, "", settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})
}

func init() {
	registerProductTrigger(KindProductViewed, EventProductViewed,
		func(settings *M.TrackingSettings) bool { return settings.TrackProductViewed })
	registerProductTrigger(KindProductAdded, EventProductAdded,
		func(settings *M.TrackingSettings) bool { return settings.TrackProductAdded })
	registerProductTrigger(KindProductRemoved, EventProductRemoved,
		func(settings *M.TrackingSettings) bool { return settings.TrackProductRemoved })

	register(KindCartViewed, definition{
		enabled: commerceFlag(func(settings *M.TrackingSettings) bool {
			return settings.TrackCartViewed
		}),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload CartPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid cart_viewed payload")
			}

			properties := U.PropertiesMap{
				"cart_id":  payload.CartID,
				"value":    payload.Value,
				"currency": payload.Currency,
				"products": productsAsProperties(payload.Products),
			}

			event, err := track.BuildTrack(EventCartViewed, properties, "", settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})

	register(KindCheckoutStarted, definition{
		enabled: commerceFlag(func(settings *M.TrackingSettings) bool {
			return settings.TrackCheckoutStarted
		}),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload CheckoutPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid checkout_started payload")
			}

			properties := U.PropertiesMap{
				"order_id": payload.OrderID,
				"value":    payload.Value,
				"revenue":  payload.Revenue,
				"shipping": payload.Shipping,
				"tax":      payload.Tax,
				"discount": payload.Discount,
				"currency": payload.Currency,
				"products": productsAsProperties(payload.Products),
			}
			if payload.Coupon != "" {
				properties["coupon"] = payload.Coupon
			}

			event, err := track.BuildTrack(EventCheckoutStarted, properties, "",
				settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})

	registerOrderTrigger(KindOrderCompleted, EventOrderCompleted,
		func(settings *M.TrackingSettings) bool { return settings.TrackOrderCompleted })
	registerOrderTrigger(KindOrderUpdated, EventOrderUpdated,
		func(settings *M.TrackingSettings) bool { return settings.TrackOrderUpdated })
	registerOrderTrigger(KindOrderRefunded, EventOrderRefunded,
		func(settings *M.TrackingSettings) bool { return settings.TrackOrderRefunded })
	registerOrderTrigger(KindOrderCancelled, EventOrderCancelled,
		func(settings *M.TrackingSettings) bool { return settings.TrackOrderCancelled })

	registerCouponTrigger(KindCouponApplied, EventCouponApplied, true)
	registerCouponTrigger(KindCouponRemoved, EventCouponRemoved, false)

	register(KindProductSearch, definition{
		enabled: commerceFlag(func(settings *M.TrackingSettings) bool {
			return settings.TrackProductSearches
		}),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload SearchPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid product_search payload")
			}
			if payload.Query == "" {
				return nil, errors.New("product_search requires a query")
			}

			event, err := track.BuildTrack(EventProductsSearched,
				U.PropertiesMap{"query": payload.Query}, "", settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})

	register(KindProductListViewed, definition{
		enabled: commerceFlag(func(settings *M.TrackingSettings) bool {
			return settings.TrackProductLists
		}),
		build: func(raw json.RawMessage, settings *M.TrackingSettings,
			reqCtx *track.RequestContext) ([]*track.Event, error) {

			var payload ProductListPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, errors.Wrap(err, "invalid product_list_viewed payload")
			}

			properties := U.PropertiesMap{
				"list_id":  payload.ListID,
				"category": payload.Category,
				"products": productsAsProperties(payload.Products),
			}

			event, err := track.BuildTrack(EventProductListViewed, properties, "",
				settings, reqCtx)
			if err != nil {
				return nil, err
			}
			return []*track.Event{event}, nil
		},
	})
}
