package kb

// BlocksProgram derives the transitive "above" relation from "on" facts.
// Any bw_cyclic row means the on relation loops, which no legal state allows.
const BlocksProgram = `
Decl bw_on(Top, Bottom).
Decl bw_above(Top, Bottom).
Decl bw_cyclic(Block).

bw_above(X, Y) :- bw_on(X, Y).
bw_above(X, Z) :- bw_on(X, Y), bw_above(Y, Z).
bw_cyclic(X) :- bw_above(X, X).
`

// LogisticsProgram derives city membership of airports and vehicles.
const LogisticsProgram = `
Decl lg_in_city(Location, City).
Decl lg_airport(Location).
Decl lg_truck(Truck).
Decl lg_at(Object, Location).
Decl lg_airport_of(City, Location).
Decl lg_truck_city(Truck, City).

lg_airport_of(C, L) :- lg_in_city(L, C), lg_airport(L).
lg_truck_city(T, C) :- lg_truck(T), lg_at(T, L), lg_in_city(L, C).
`
