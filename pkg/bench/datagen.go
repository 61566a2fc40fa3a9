package bench

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Table is one generated table load: column names plus rows in insert order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// GenerateData produces the deterministic data set for a suite. The same
// seed yields byte-identical data, so the same rows land in every engine
// and result sets can be compared across them.
func GenerateData(suite string, seed uint64) ([]Table, error) {
	switch suite {
	case "rtabench":
		return rtabenchData(seed), nil
	case "time_series":
		return timeSeriesData(seed), nil
	case "kaggle_airbnb":
		return kaggleAirbnbData(seed), nil
	default:
		return nil, fmt.Errorf("no data generator for suite %q", suite)
	}
}

var (
	terminals  = []string{"Berlin", "Hamburg", "Munich", "Frankfurt", "Cologne"}
	processors = []string{"dhl", "hermes", "dpd", "gls", "ups"}
	categories = []string{"electronics", "books", "toys", "garden", "kitchen"}
	cities     = []string{"Berlin", "Hamburg", "Munich", "Leipzig", "Dresden"}
)

func rtabenchData(seed uint64) []Table {
	rng := rand.New(rand.NewPCG(seed, seed))

	const (
		numCustomers = 50
		numProducts  = 40
		numOrders    = 500
	)

	customers := Table{
		Name: "customers",
		Columns: []string{
			"customer_id", "name", "birthday", "email", "address",
			"city", "zip", "state", "country",
		},
	}
	for i := 1; i <= numCustomers; i++ {
		birthday := time.Date(1950+rng.IntN(56), time.Month(1+rng.IntN(12)), 1+rng.IntN(28),
			0, 0, 0, 0, time.UTC)
		city := cities[rng.IntN(len(cities))]
		customers.Rows = append(customers.Rows, []any{
			int32(i),
			fmt.Sprintf("Customer %d", i),
			birthday,
			fmt.Sprintf("customer%d@example.com", i),
			fmt.Sprintf("%d Main Street", 1+rng.IntN(200)),
			city,
			fmt.Sprintf("%05d", 10000+rng.IntN(80000)),
			"BE",
			"Germany",
		})
	}

	products := Table{
		Name:    "products",
		Columns: []string{"product_id", "name", "description", "category", "price", "stock"},
	}
	for i := 1; i <= numProducts; i++ {
		products.Rows = append(products.Rows, []any{
			int32(i),
			fmt.Sprintf("Product %d", i),
			fmt.Sprintf("Description of product %d", i),
			categories[rng.IntN(len(categories))],
			2 + rng.Float64()*498,
			int32(rng.IntN(1000)),
		})
	}

	orders := Table{
		Name:    "orders",
		Columns: []string{"order_id", "customer_id", "created_at"},
	}
	orderItems := Table{
		Name:    "order_items",
		Columns: []string{"order_id", "product_id", "amount"},
	}
	events := Table{
		Name: "order_events",
		Columns: []string{
			"order_id", "counter", "event_created", "event_type",
			"satisfaction", "processor", "backup_processor", "event_payload",
		},
	}

	// Orders span March through June 2024 so a slice of the event stream
	// lands in every month the queries filter on.
	ordersFrom := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ordersSpan := int(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).Sub(ordersFrom) / time.Second)

	for i := 1; i <= numOrders; i++ {
		createdAt := ordersFrom.Add(time.Duration(rng.IntN(ordersSpan)) * time.Second)
		orders.Rows = append(orders.Rows, []any{
			int32(i),
			int32(1 + rng.IntN(numCustomers)),
			createdAt,
		})

		numItems := 1 + rng.IntN(3)
		for j := 0; j < numItems; j++ {
			orderItems.Rows = append(orderItems.Rows, []any{
				int32(i),
				int32((rng.IntN(numProducts)+j)%numProducts + 1),
				int32(1 + rng.IntN(5)),
			})
		}

		terminal := terminals[rng.IntN(len(terminals))]
		processor := processors[rng.IntN(len(processors))]

		// A third of events carry no backup processor at all, a third carry
		// an empty one. Engines that cannot represent NULL load the empty
		// string for both.
		var backup any
		switch rng.IntN(3) {
		case 0:
			backup = nil
		case 1:
			backup = ""
		default:
			backup = processors[rng.IntN(len(processors))]
		}

		counter := int32(1)
		at := createdAt
		for _, eventType := range orderEventSequence(rng) {
			payload := fmt.Sprintf(`{"terminal": %q, "by": %q}`, terminal, processor)
			events.Rows = append(events.Rows, []any{
				int32(i),
				counter,
				at,
				eventType,
				float32(rng.IntN(11)),
				processor,
				backup,
				payload,
			})
			counter++
			at = at.Add(time.Duration(1+rng.IntN(48)) * time.Hour)
		}
	}

	return []Table{customers, products, orders, orderItems, events}
}

// orderEventSequence returns the lifecycle of one order. Every order is
// created and departs; most get delivered, some are delayed on the way.
func orderEventSequence(rng *rand.Rand) []string {
	seq := []string{"Created", "Departed"}
	if rng.IntN(5) == 0 {
		seq = append(seq, "Delayed")
	}
	if rng.IntN(10) != 0 {
		seq = append(seq, "Delivered")
	}
	return seq
}

func timeSeriesData(seed uint64) []Table {
	rng := rand.New(rand.NewPCG(seed, seed))

	// One row per minute over the last day of 2024, ending at the 23:59
	// point the selective queries probe for.
	from := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	const minutes = 24 * 60

	eav := func(name string, ids int) Table {
		t := Table{Name: name, Columns: []string{"time", "id", "value"}}
		for m := 0; m < minutes; m++ {
			at := from.Add(time.Duration(m) * time.Minute)
			for id := 1; id <= ids; id++ {
				t.Rows = append(t.Rows, []any{at, int16(id), rng.Float32() * 100})
			}
		}
		return t
	}

	wide := func(name string, days int) Table {
		t := Table{Name: name, Columns: []string{
			"time", "col_1", "col_2", "col_3", "col_4", "col_5",
			"col_6", "col_7", "col_8", "col_9", "col_10",
		}}
		start := from.AddDate(0, 0, 1-days)
		for m := 0; m < days*minutes; m++ {
			row := []any{start.Add(time.Duration(m) * time.Minute)}
			for c := 0; c < 10; c++ {
				row = append(row, rng.Float32()*100)
			}
			t.Rows = append(t.Rows, row)
		}
		return t
	}

	return []Table{
		eav("data_small_eav", 2),
		eav("data_medium_eav", 6),
		wide("data_small_wide", 1),
		wide("data_medium_wide", 3),
	}
}

func kaggleAirbnbData(seed uint64) []Table {
	rng := rand.New(rand.NewPCG(seed, seed))

	const numListings = 100

	groups := []string{"Mitte", "Pankow", "Neukoelln"}
	hoods := []string{"Alexanderplatz", "Wedding", "Prenzlauer Berg", "Rixdorf", "Britz", "Buch"}
	roomTypes := []string{"Entire home/apt", "Private room", "Shared room"}

	neighbourhoods := Table{
		Name:    "neighbourhoods",
		Columns: []string{"neighbourhood_group", "neighbourhood"},
	}
	for i, hood := range hoods {
		neighbourhoods.Rows = append(neighbourhoods.Rows, []any{groups[i/2], hood})
	}

	listings := Table{
		Name: "listings",
		Columns: []string{
			"id", "name", "host_id", "host_name", "neighbourhood_group", "neighbourhood",
			"latitude", "longitude", "room_type", "price", "minimum_nights",
			"number_of_reviews", "last_review", "reviews_per_month",
			"calculated_host_listings_count", "availability_365", "number_of_reviews_ltm", "license",
		},
	}
	listingsDetailed := Table{
		Name: "listings_detailed",
		Columns: []string{
			"id", "name", "host_id", "host_since", "host_is_superhost", "neighbourhood",
			"room_type", "accommodates", "bedrooms", "beds", "price", "number_of_reviews",
			"first_review", "last_review", "review_scores_rating", "instant_bookable",
		},
	}
	for i := 1; i <= numListings; i++ {
		hoodIdx := rng.IntN(len(hoods))
		roomType := roomTypes[rng.IntN(len(roomTypes))]
		price := 30 + rng.Float64()*270
		reviews := int32(rng.IntN(300))
		lastReview := time.Date(2024, time.Month(1+rng.IntN(6)), 1+rng.IntN(28), 0, 0, 0, 0, time.UTC)

		listings.Rows = append(listings.Rows, []any{
			int64(i),
			fmt.Sprintf("Listing %d", i),
			int64(1000 + rng.IntN(40)),
			fmt.Sprintf("Host %d", 1+rng.IntN(40)),
			groups[hoodIdx/2],
			hoods[hoodIdx],
			52.3 + rng.Float64()*0.3,
			13.2 + rng.Float64()*0.4,
			roomType,
			price,
			int32(1 + rng.IntN(7)),
			reviews,
			lastReview,
			rng.Float64() * 5,
			int32(1 + rng.IntN(5)),
			int32(rng.IntN(366)),
			int32(rng.IntN(50)),
			"",
		})
		listingsDetailed.Rows = append(listingsDetailed.Rows, []any{
			int64(i),
			fmt.Sprintf("Listing %d", i),
			int64(1000 + rng.IntN(40)),
			time.Date(2015+rng.IntN(8), time.Month(1+rng.IntN(12)), 1+rng.IntN(28), 0, 0, 0, 0, time.UTC),
			rng.IntN(4) == 0,
			hoods[hoodIdx],
			roomType,
			int32(1 + rng.IntN(8)),
			float64(1 + rng.IntN(4)),
			float64(1 + rng.IntN(6)),
			fmt.Sprintf("$%.2f", price),
			reviews,
			time.Date(2022, time.Month(1+rng.IntN(12)), 1+rng.IntN(28), 0, 0, 0, 0, time.UTC),
			lastReview,
			2 + rng.Float64()*3,
			rng.IntN(2) == 0,
		})
	}

	// Calendar covers June 2024, the month the join queries pin on.
	calendar := Table{
		Name: "calendar",
		Columns: []string{
			"listing_id", "date", "available", "price", "adjusted_price",
			"minimum_nights", "maximum_nights",
		},
	}
	for i := 1; i <= numListings; i++ {
		for day := 0; day < 30; day++ {
			price := 30 + rng.Float64()*270
			calendar.Rows = append(calendar.Rows, []any{
				int64(i),
				time.Date(2024, 6, 1+day, 0, 0, 0, 0, time.UTC),
				rng.IntN(3) != 0,
				fmt.Sprintf("$%.2f", price),
				fmt.Sprintf("$%.2f", price*0.95),
				int32(1 + rng.IntN(7)),
				int32(30 + rng.IntN(335)),
			})
		}
	}

	reviews := Table{
		Name:    "reviews",
		Columns: []string{"listing_id", "date"},
	}
	reviewsDetailed := Table{
		Name: "reviews_detailed",
		Columns: []string{
			"listing_id", "id", "date", "reviewer_id", "reviewer_name", "comments",
		},
	}
	for i := 1; i <= 500; i++ {
		listingID := int64(1 + rng.IntN(numListings))
		date := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, rng.IntN(365))
		reviews.Rows = append(reviews.Rows, []any{listingID, date})
		reviewsDetailed.Rows = append(reviewsDetailed.Rows, []any{
			listingID,
			int64(i),
			date,
			int64(5000 + rng.IntN(400)),
			fmt.Sprintf("Reviewer %d", 1+rng.IntN(400)),
			fmt.Sprintf("Review %d text", i),
		})
	}

	return []Table{neighbourhoods, listings, listingsDetailed, calendar, reviews, reviewsDetailed}
}
