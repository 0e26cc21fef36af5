// Package properties manages real-estate listings.
//
// Every listing belongs to a tenant and is held by a listing agent. Agents and
// above create and edit listings. Deleting a listing or handing it to another
// agent requires strictly outranking the current listing agent, so an agent
// cannot take over or remove a manager's listing.
//
// List queries support exact filters on status, type, listingType, city and
// agentId, inclusive ranges on price, area, bedrooms and bathrooms
// (minPrice=...&maxPrice=...), and free-text search over title, address, city
// and description.
package properties
