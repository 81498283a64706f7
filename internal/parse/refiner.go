package parse

// AddressRefiner splits a raw address into a street-level match key and a city.
// An empty key means the refiner could not improve on the input.
type AddressRefiner interface {
	Refine(address string) (key, city string)
}
