// Package urlclass classifies visited page paths into a normalized page
// identifier plus best-effort organisation and section tags.
//
// Classification is a pure function driven by an ordered rule table.
// Rules are tested top to bottom and the first match wins; several rules can
// match the same path, so the order of the table determines the outcome:
//
//  1. /government/world anywhere  → page /government/world, org Foreign & Commonwealth Office
//  2. /guidance or /government    → page unchanged
//  3. /browse                     → page /segment1/segment2, section segment2
//  4. /, /search*, /help*         → sections [site-nav, site-nav]
//  5. /contact*                   → sections [contact, contact]
//  6. anything else               → page /segment1
//
// Organisation and section data the rules cannot infer is filled in later by
// the lookup package from the content API.
package urlclass
