package generate

import (
	"context"
	"time"

	"tomeforge/internal/jobs"
)

// FallbackGenerator is the deterministic, dependency-free generator
// used when the AI path is unconfigured or unavailable. It produces a
// structurally valid campaign of lower fidelity from built-in templates
// selected by complexity; it never errors.
type FallbackGenerator struct{}

func NewFallback() *FallbackGenerator {
	return &FallbackGenerator{}
}

type fallbackCampaign struct {
	title   string
	content string
}

var fallbackCampaigns = map[jobs.Complexity]fallbackCampaign{
	jobs.ComplexitySimple: {
		title: "The Sleeping Dragon Tavern",
		content: `# The Sleeping Dragon Tavern

## Overview
The players arrive at the "Sleeping Dragon" tavern during a storm. The place seems ordinary, but hides a cult performing a ritual beneath the establishment.

## Session 1: The Arrival
**Objective**: Investigate the disappearances at the tavern

**Scene 1**: Arrival during the storm
- NPCs: Thorin (owner), Liana (barmaid), travelers
- Event: A traveler disappears during the night

**Scene 2**: Investigation
- Clues: Strange stains in the cellar, hidden symbols
- Encounter: Cult guards (2 humans, 1 sorcerer)

## Session 2: The Ritual
**Objective**: Stop the summoning ritual

**Scene 1**: Secret tunnels
- Puzzle: Elemental symbols to open doors

**Scene 2**: Ritual chamber
- Boss: Cult leader and acolytes
- Reward: Magical dragon artifact

## Key NPCs
- **Thorin**: Human fighter, level 3 (possible ally)
- **Cult Leader**: Sorcerer, level 4

## Rewards
- 500 gp + Amulet of Protection (magic resistance)`,
	},
	jobs.ComplexityMedium: {
		title: "The Curse of the Ancestral Forest",
		content: `# The Curse of the Ancestral Forest

## Overview
An ancient forest has begun expanding magically, corrupting neighboring lands. The players must discover the source of the curse.

## Session 1: Village on the Border
**Objective**: Investigate the forest's expansion

**Scene 1**: Village of Oakhaven
- NPCs: Worried mayor, reclusive druid
- Quests: Rescue the missing, collect samples

**Scene 2**: Edge of the forest
- Encounter: Corrupted creatures (wolves, bears)

## Session 2: Heart of the Forest
**Objective**: Find the elder druid

**Scene 1**: Dangerous passage
- Challenges: Natural labyrinth, carnivorous plants

**Scene 2**: The druid's glade
- NPC: Elowen (druid, level 5), reveals the curse's origin

## Session 3: Forgotten Temple
**Objective**: Recover the purifying artifact

**Scene 1**: Submerged ruins
- Puzzle: Celestial alignment

**Scene 2**: Temple guardians
- Combat: Nature elementals

## Session 4: Final Confrontation
**Objective**: Purify the source of corruption

**Scene 1**: Corrupted spring
- Boss: Corrupted Spirit (CR 6)
- Rewards: Druidic treasure

## Character Development
Suggested archetypes: Forest ranger, druid, nature cleric`,
	},
	jobs.ComplexityComplex: {
		title: "The Shattered Crown",
		content: `# The Shattered Crown

## Overview
The realm's crown was shattered into five shards, each claimed by a rival faction. The players are drawn into a war of intrigue where every shard recovered shifts the balance of power — and every choice closes doors.

## Arc 1: Embers of War (Sessions 1-2)
**Objective**: Learn of the shattering and recover the first shard

**Session 1**: The capital in turmoil
- NPCs: Regent Maelis, spymaster Corvin, exiled heir
- Event: Assassination attempt during the regent's address

**Session 2**: The mountain vault
- Challenges: Dwarven seals, rival agents racing the party
- Encounter: Vault guardian construct

## Arc 2: The Five Banners (Sessions 3-5)
**Objective**: Negotiate with or defeat the factions holding the remaining shards

- Each faction can be allied with, deceived, or fought
- Faction standing carries forward; betrayals are remembered
- Key locations: Drowned Archive, Sunspire Keep, the Ashen Court

## Arc 3: The Reforging (Sessions 6+)
**Objective**: Reforge the crown — or destroy it

**Finale**: The reforging ritual draws every surviving faction to one battlefield. The ending depends on which shards the party holds and which allies still stand.

## Key NPCs
- **Regent Maelis**: Human noble, level 7 (hidden agenda)
- **Spymaster Corvin**: Half-elf rogue, level 6
- **The Pale Queen**: Lich claiming the oldest shard (CR 12)

## Possible Endings
- The crown reforged: a new ruler is chosen by the party's allies
- The crown destroyed: the realm fragments into free cities
- The crown claimed: a party member takes the throne

## Rewards
- Shard-touched relics (one per arc), 5,000+ gp in faction favors`,
	},
}

func (f *FallbackGenerator) Generate(_ context.Context, _ string, params Params) (Artifact, error) {
	campaign, ok := fallbackCampaigns[params.Complexity]
	if !ok {
		campaign = fallbackCampaigns[jobs.ComplexityMedium]
	}

	return Artifact{
		Title:   campaign.title,
		Content: FormatCampaign(campaign.content, params, campaign.title, time.Now()),
	}, nil
}
